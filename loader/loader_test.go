package loader

import (
	"context"
	"testing"

	"github.com/matryer/is"
	"github.com/mogiioin/hls-manifest/fetch"
	"github.com/mogiioin/hls-manifest/segment"
)

type fakeRequester struct {
	playlists map[string]string
	keys      map[string][]byte
}

func (f *fakeRequester) Request(ctx context.Context, kind fetch.Kind, req *fetch.Request) (*fetch.Response, error) {
	uri := req.URIs[0]
	switch kind {
	case fetch.Manifest:
		return &fetch.Response{URI: uri, Data: []byte(f.playlists[uri])}, nil
	case fetch.Key:
		return &fetch.Response{URI: uri, Data: f.keys[uri]}, nil
	default:
		return &fetch.Response{URI: uri}, nil
	}
}

func TestLoadVODBasicSequencing(t *testing.T) {
	is := is.New(t)
	req := &fakeRequester{playlists: map[string]string{
		"media.m3u8": "#EXTM3U\n" +
			"#EXT-X-TARGETDURATION:10\n" +
			"#EXT-X-MEDIA-SEQUENCE:0\n" +
			"#EXTINF:10,\nseg1.ts\n" +
			"#EXTINF:10,\nseg2.ts\n" +
			"#EXT-X-ENDLIST\n",
	}}

	info, err := Load(context.Background(), req, []string{"media.m3u8"}, Options{
		ContentKind: Video,
		InitCache:   segment.NewCache(),
	})
	is.NoErr(err)
	is.True(info.HasEndList)
	is.Equal(info.PresentationType, VODPresentation)
	is.Equal(info.Index.Len(), 2)
	is.Equal(info.Index.Earliest().StartTime, 0.0)
	is.Equal(info.Index.Earliest().EndTime, 10.0)
	is.Equal(info.Index.Last().StartTime, 10.0)
	is.Equal(info.Index.Last().EndTime, 20.0)
	is.Equal(info.MimeType, "video/mp2t")
}

func TestLoadRejectsMasterPlaylist(t *testing.T) {
	is := is.New(t)
	req := &fakeRequester{playlists: map[string]string{
		"master.m3u8": "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=1000\nlow.m3u8\n",
	}}
	_, err := Load(context.Background(), req, []string{"master.m3u8"}, Options{ContentKind: Video, InitCache: segment.NewCache()})
	is.True(err != nil)
}

func TestLoadHoldBackAndServerControl(t *testing.T) {
	is := is.New(t)
	req := &fakeRequester{playlists: map[string]string{
		"media.m3u8": "#EXTM3U\n" +
			"#EXT-X-TARGETDURATION:5\n" +
			"#EXT-X-MEDIA-SEQUENCE:100\n" +
			"#EXT-X-SERVER-CONTROL:HOLD-BACK=15,CAN-BLOCK-RELOAD=YES\n" +
			strRepeat("#EXTINF:5,\nseg.ts\n", 6),
	}}
	info, err := Load(context.Background(), req, []string{"media.m3u8"}, Options{ContentKind: Video, InitCache: segment.NewCache()})
	is.NoErr(err)
	is.Equal(info.HoldBack, 15.0)
	is.True(info.CanBlockReload)
	is.Equal(info.FirstSequenceNumber, uint64(100))
	is.Equal(info.NextMediaSequence, uint64(106))
}

func TestLoadSkipsUnsupportedKeyformatAlongsideIdentity(t *testing.T) {
	is := is.New(t)
	req := &fakeRequester{playlists: map[string]string{
		"media.m3u8": "#EXTM3U\n" +
			"#EXT-X-TARGETDURATION:10\n" +
			"#EXT-X-MEDIA-SEQUENCE:0\n" +
			"#EXT-X-KEY:METHOD=SAMPLE-AES,URI=\"skd://a\",KEYFORMAT=\"com.example.unknown\"\n" +
			"#EXT-X-KEY:METHOD=SAMPLE-AES,URI=\"skd://b\",KEYFORMAT=\"identity\"\n" +
			"#EXTINF:10,\nseg1.ts\n" +
			"#EXT-X-ENDLIST\n",
	}}

	info, err := Load(context.Background(), req, []string{"media.m3u8"}, Options{
		ContentKind: Video,
		InitCache:   segment.NewCache(),
	})
	is.NoErr(err)
	is.Equal(info.Index.Len(), 1)
	is.Equal(len(info.DrmInfos), 1)
	is.Equal(info.DrmInfos[0].KeySystem, "org.w3.clearkey")
}

func strRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
