package manifest

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/mogiioin/hls-manifest/fetch"
	"github.com/mogiioin/hls-manifest/loader"
	"github.com/mogiioin/hls-manifest/segment"
)

type reloadRequester struct {
	playlists map[string]string
}

func (f *reloadRequester) Request(ctx context.Context, kind fetch.Kind, req *fetch.Request) (*fetch.Response, error) {
	uri := req.URIs[0]
	return &fetch.Response{URI: uri, Data: []byte(f.playlists[uri])}, nil
}

func segmentsPlaylist(firstSeq, n int, skipped int) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-TARGETDURATION:5\n")
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:" + strconv.Itoa(firstSeq) + "\n")
	if skipped > 0 {
		b.WriteString("#EXT-X-SKIP:SKIPPED-SEGMENTS=" + strconv.Itoa(skipped) + "\n")
	}
	start := firstSeq + skipped
	for i := 0; i < n; i++ {
		b.WriteString("#EXTINF:5,\nseg" + strconv.Itoa(start+i) + ".ts\n")
	}
	return b.String()
}

// TestStreamReloadSplicesDeltaUpdateWithSkip exercises §8 scenario 5: an
// initial 10-segment playlist at media sequence 50, followed by a delta
// update whose EXT-X-SKIP:SKIPPED-SEGMENTS=5 elides the first five
// segments in favor of 7 fresh ones. The merged index should span all 12
// still-relevant segments, and NextMediaSequence should land on 62.
func TestStreamReloadSplicesDeltaUpdateWithSkip(t *testing.T) {
	is := is.New(t)
	req := &reloadRequester{playlists: map[string]string{
		"media.m3u8":  segmentsPlaylist(50, 10, 0),
		"reload.m3u8": segmentsPlaylist(50, 7, 5),
	}}

	st := NewStream("video", VideoType, func(ctx context.Context, overrideURI string) (*loader.StreamInfo, error) {
		uri := "media.m3u8"
		if overrideURI != "" {
			uri = overrideURI
		}
		return loader.Load(ctx, req, []string{uri}, loader.Options{
			ContentKind: loader.Video,
			InitCache:   segment.NewCache(),
		})
	})

	idx, err := st.CreateSegmentIndex(context.Background())
	is.NoErr(err)
	is.Equal(idx.Len(), 10)

	err = st.Reload(context.Background(), "reload.m3u8", 0)
	is.NoErr(err)

	merged := st.SegmentIndex()
	is.Equal(merged.Len(), 12)
	is.Equal(merged.Earliest().StartTime, 0.0)
	is.Equal(merged.Last().EndTime, 60.0)
	is.Equal(st.LoaderInfo().NextMediaSequence, uint64(62))
}
