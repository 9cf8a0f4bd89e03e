package manifest

import (
	"context"
	"testing"

	"github.com/matryer/is"

	"github.com/mogiioin/hls-manifest/fetch"
)

type fakeRequester struct {
	playlists map[string]string
}

func (f *fakeRequester) Request(ctx context.Context, kind fetch.Kind, req *fetch.Request) (*fetch.Response, error) {
	uri := req.URIs[0]
	return &fetch.Response{URI: uri, Data: []byte(f.playlists[uri])}, nil
}

const masterPlaylist = `#EXTM3U
#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aac",NAME="English",LANGUAGE="en",URI="audio.m3u8",DEFAULT=YES
#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID="subs",NAME="English",LANGUAGE="en",URI="subs.m3u8"
#EXT-X-STREAM-INF:BANDWIDTH=1280000,CODECS="avc1.4d401f,mp4a.40.2",RESOLUTION=640x360,AUDIO="aac"
low.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2560000,CODECS="avc1.4d401f,mp4a.40.2",RESOLUTION=1280x720,AUDIO="aac"
high.m3u8
`

func mediaPlaylist() string {
	return "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXT-X-MEDIA-SEQUENCE:0\n" +
		"#EXTINF:10,\nseg1.ts\n#EXT-X-ENDLIST\n"
}

func newFakeRequester() *fakeRequester {
	return &fakeRequester{playlists: map[string]string{
		"master.m3u8": masterPlaylist,
		"low.m3u8":     mediaPlaylist(),
		"high.m3u8":    mediaPlaylist(),
		"audio.m3u8":   mediaPlaylist(),
		"subs.m3u8":    mediaPlaylist(),
	}}
}

func TestBuildGroupsVariantsAndMedia(t *testing.T) {
	is := is.New(t)
	req := newFakeRequester()

	mf, err := Build(context.Background(), req, "master.m3u8", masterPlaylist, Options{})
	is.NoErr(err)
	is.Equal(len(mf.Variants), 2)
	is.Equal(len(mf.TextStreams), 1)

	v := mf.Variants[0]
	is.True(v.Video != nil)
	is.True(v.Audio != nil)
	is.Equal(v.Audio.Language, "en")
	is.True(v.Bandwidth == 1280000 || v.Bandwidth == 2560000)
}

func TestBuildVariantLoadsMediaPlaylistLazily(t *testing.T) {
	is := is.New(t)
	req := newFakeRequester()

	mf, err := Build(context.Background(), req, "master.m3u8", masterPlaylist, Options{})
	is.NoErr(err)

	v := mf.Variants[0]
	is.True(v.Video.SegmentIndex() == nil) // not loaded yet

	idx, err := v.Video.CreateSegmentIndex(context.Background())
	is.NoErr(err)
	is.Equal(idx.Len(), 1)
	is.Equal(v.Video.MimeType, "video/mp2t")
}

func TestBuildRejectsMediaPlaylist(t *testing.T) {
	is := is.New(t)
	req := &fakeRequester{playlists: map[string]string{"media.m3u8": mediaPlaylist()}}
	_, err := Build(context.Background(), req, "media.m3u8", mediaPlaylist(), Options{})
	is.True(err != nil)
}

func TestSupplementalCodecsReplacesVideoEntry(t *testing.T) {
	is := is.New(t)
	is.Equal(supplementalCodecs("avc1.4d401f,mp4a.40.2", "hvc1.2.4.L93.B0/2"), "hvc1.2.4.L93.B0,mp4a.40.2")
}

func TestBuildParsesSessionDataAndContentSteering(t *testing.T) {
	is := is.New(t)
	const master = `#EXTM3U
#EXT-X-SESSION-DATA:DATA-ID="com.example.title",LANGUAGE="en",VALUE="Example Show"
#EXT-X-SESSION-DATA:DATA-ID="com.example.empty"
#EXT-X-CONTENT-STEERING:SERVER-URI="steering.json",PATHWAY-ID="east"
#EXT-X-STREAM-INF:BANDWIDTH=1000000,CODECS="avc1.4d401f"
low.m3u8
`
	req := &fakeRequester{playlists: map[string]string{
		"master.m3u8": master,
		"low.m3u8":    mediaPlaylist(),
	}}

	mf, err := Build(context.Background(), req, "master.m3u8", master, Options{})
	is.NoErr(err)
	is.Equal(len(mf.SessionData), 1)
	is.Equal(mf.SessionData[0].DataID, "com.example.title")
	is.Equal(mf.SessionData[0].Language, "en")
	is.Equal(mf.SessionData[0].Value, "Example Show")
	is.True(mf.ContentSteering != nil)
	is.Equal(mf.ContentSteering.ServerURI, "steering.json")
	is.Equal(mf.ContentSteering.PathwayID, "east")
}

func TestBuildContentSteeringDefaultsPathwayID(t *testing.T) {
	is := is.New(t)
	const master = `#EXTM3U
#EXT-X-CONTENT-STEERING:SERVER-URI="steering.json"
#EXT-X-STREAM-INF:BANDWIDTH=1000000,CODECS="avc1.4d401f"
low.m3u8
`
	req := &fakeRequester{playlists: map[string]string{
		"master.m3u8": master,
		"low.m3u8":    mediaPlaylist(),
	}}

	mf, err := Build(context.Background(), req, "master.m3u8", master, Options{})
	is.NoErr(err)
	is.Equal(mf.ContentSteering.PathwayID, ".")
}
