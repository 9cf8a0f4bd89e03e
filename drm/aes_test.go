package drm

import (
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/mogiioin/hls-manifest/m3u8"
)

func TestBuildAESKeyDefaultsIVFromSequenceNumber(t *testing.T) {
	is := is.New(t)
	p, err := m3u8.Lex(strings.NewReader("#EXTM3U\n#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\"\n#EXTINF:4.0,\nseg0.ts\n"))
	is.NoErr(err)
	tag := p.Tag("EXT-X-KEY")

	key, err := BuildAESKey(tag, 7, func() ([]byte, error) { return make([]byte, 16), nil })
	is.NoErr(err)
	is.Equal(key.BitsKey, 128)
	is.Equal(key.BlockCipherMode, "CBC")
	is.Equal(len(key.IV), 16)
	is.Equal(key.IV[15], byte(7))
}

func TestBuildAESKeyRejectsShortIV(t *testing.T) {
	is := is.New(t)
	p, err := m3u8.Lex(strings.NewReader(`#EXTM3U
#EXT-X-KEY:METHOD=AES-128,URI="key.bin",IV=0x1234
#EXTINF:4.0,
seg0.ts
`))
	is.NoErr(err)
	tag := p.Tag("EXT-X-KEY")
	_, err = BuildAESKey(tag, 0, func() ([]byte, error) { return nil, nil })
	is.True(err != nil)
}

func TestBuildAESKeyNormalizesUnexpectedKeyLength(t *testing.T) {
	is := is.New(t)
	p, err := m3u8.Lex(strings.NewReader("#EXTM3U\n#EXT-X-KEY:METHOD=AES-256,URI=\"key.bin\"\n#EXTINF:4.0,\nseg0.ts\n"))
	is.NoErr(err)
	tag := p.Tag("EXT-X-KEY")

	key, err := BuildAESKey(tag, 0, func() ([]byte, error) { return make([]byte, 20), nil })
	is.NoErr(err)
	normalized, err := key.FetchKey()
	is.NoErr(err)
	is.Equal(len(normalized), 32)
}
