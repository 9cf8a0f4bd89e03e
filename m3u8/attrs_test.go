package m3u8

import (
	"testing"

	"github.com/matryer/is"
)

func TestParseAttrListPreservesOrderAndDedupes(t *testing.T) {
	is := is.New(t)
	a := parseAttrList(`BANDWIDTH=1280000,BANDWIDTH=99,CODECS="avc1.4d401f"`)
	is.Equal(a.Keys(), []string{"BANDWIDTH", "CODECS"}) // first-seen order, duplicate key overwritten not re-inserted
	n, ok := a.Int("BANDWIDTH")
	is.True(ok)
	is.Equal(n, int64(99)) // last value for a repeated key wins
	is.Equal(a.String("CODECS"), "avc1.4d401f")
}

func TestAttrListHexAndResolution(t *testing.T) {
	is := is.New(t)
	a := parseAttrList(`IV=0x9c7db8778570d05c3177c349fd9236aa,RESOLUTION=1920x1080`)
	iv, ok := a.Hex("IV")
	is.True(ok)
	is.Equal(len(iv), 16)
	w, h, ok := a.Resolution("RESOLUTION")
	is.True(ok)
	is.Equal(w, 1920)
	is.Equal(h, 1080)
}

func TestAttrListYesNoDefaultsFalse(t *testing.T) {
	is := is.New(t)
	a := parseAttrList(`AUTOSELECT=YES,DEFAULT=NO`)
	is.True(a.YesNo("AUTOSELECT"))
	is.True(!a.YesNo("DEFAULT"))
	is.True(!a.YesNo("MISSING"))
}

func TestAttrListNilReceiverIsSafe(t *testing.T) {
	is := is.New(t)
	var a *AttrList
	is.True(!a.Has("ANY"))
	is.Equal(a.String("ANY"), "")
	is.Equal(len(a.Keys()), 0)
}
