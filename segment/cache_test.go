package segment

import (
	"testing"

	"github.com/matryer/is"
)

func TestCacheGetOrCreateDedupesByURIAndRange(t *testing.T) {
	is := is.New(t)
	c := NewCache()
	builds := 0
	build := func() *InitSegmentReference {
		builds++
		return &InitSegmentReference{URI: "init.mp4"}
	}
	end := int64(99)
	r1 := c.GetOrCreate("init.mp4", 0, &end, build)
	r2 := c.GetOrCreate("init.mp4", 0, &end, build)
	is.True(r1 == r2)
	is.Equal(builds, 1)
	is.Equal(c.Len(), 1)
}

func TestCacheDistinctRangesAreDistinctEntries(t *testing.T) {
	is := is.New(t)
	c := NewCache()
	endA := int64(99)
	endB := int64(199)
	c.GetOrCreate("init.mp4", 0, &endA, func() *InitSegmentReference { return &InitSegmentReference{} })
	c.GetOrCreate("init.mp4", 100, &endB, func() *InitSegmentReference { return &InitSegmentReference{} })
	is.Equal(c.Len(), 2)
}

func TestCacheClear(t *testing.T) {
	is := is.New(t)
	c := NewCache()
	c.GetOrCreate("init.mp4", 0, nil, func() *InitSegmentReference { return &InitSegmentReference{} })
	c.Clear()
	is.Equal(c.Len(), 0)
}
