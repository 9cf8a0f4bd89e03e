package drm

import (
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/mogiioin/hls-manifest/m3u8"
)

func keyTag(t *testing.T, src string) *m3u8.Tag {
	t.Helper()
	p, err := m3u8.Lex(strings.NewReader(src))
	is.New(t).NoErr(err)
	tag := p.Tag("EXT-X-KEY")
	is.New(t).True(tag != nil)
	return tag
}

func TestDispatchIdentity(t *testing.T) {
	is := is.New(t)
	tag := keyTag(t, `#EXTM3U
#EXT-X-KEY:METHOD=SAMPLE-AES,URI="skd://key",KEYFORMAT="identity"
#EXTINF:4.0,
seg0.ts
`)
	info, err := Dispatch(tag, nil, nil)
	is.NoErr(err)
	is.Equal(info.KeySystem, "org.w3.clearkey")
	is.Equal(info.Scheme, SchemeCbcs)
}

func TestDispatchMethodNoneIsIgnored(t *testing.T) {
	is := is.New(t)
	tag := keyTag(t, "#EXTM3U\n#EXT-X-KEY:METHOD=NONE\n#EXTINF:4.0,\nseg0.ts\n")
	info, err := Dispatch(tag, nil, nil)
	is.NoErr(err)
	is.True(info == nil)
}

func TestDispatchUnknownKeyformatWarnsAndSkips(t *testing.T) {
	is := is.New(t)
	tag := keyTag(t, `#EXTM3U
#EXT-X-KEY:METHOD=SAMPLE-AES,URI="skd://key",KEYFORMAT="com.example.unknown"
#EXTINF:4.0,
seg0.ts
`)
	_, err := Dispatch(tag, nil, nil)
	is.True(err != nil)
}

func TestDispatchInvalidMethodRejected(t *testing.T) {
	is := is.New(t)
	tag := keyTag(t, "#EXTM3U\n#EXT-X-KEY:METHOD=RC4\n#EXTINF:4.0,\nseg0.ts\n")
	_, err := Dispatch(tag, nil, nil)
	is.True(err != nil)
}

func TestDispatchWidevineDecodesBase64PSSH(t *testing.T) {
	is := is.New(t)
	tag := keyTag(t, `#EXTM3U
#EXT-X-KEY:METHOD=SAMPLE-AES,KEYFORMAT="urn:uuid:edef8ba9-79d6-4ace-a3c8-27dcd51d21ed",URI="data:text/plain;base64,AAAAIHBzc2g="
#EXTINF:4.0,
seg0.ts
`)
	info, err := Dispatch(tag, nil, nil)
	is.NoErr(err)
	is.Equal(info.KeySystem, "com.widevine.alpha")
	is.True(len(info.InitData) > 0)
}
