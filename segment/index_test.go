package segment

import (
	"testing"

	"github.com/matryer/is"
)

func ref(start, end float64) *SegmentReference {
	return &SegmentReference{StartTime: start, EndTime: end}
}

func TestIndexEvictBefore(t *testing.T) {
	is := is.New(t)
	idx := NewIndex()
	idx.Append(ref(0, 10), ref(10, 20), ref(20, 30))
	n := idx.EvictBefore(15)
	is.Equal(n, 1)
	is.Equal(idx.Len(), 2)
	is.Equal(idx.Earliest().StartTime, 10.0)
}

func TestIndexSeekByTime(t *testing.T) {
	is := is.New(t)
	idx := NewIndex()
	idx.Append(ref(0, 10), ref(10, 20), ref(20, 30))
	r := idx.SeekByTime(15)
	is.Equal(r.StartTime, 10.0)
	is.True(idx.SeekByTime(100) == nil)
}

func TestIndexOffsetAllTimesBy(t *testing.T) {
	is := is.New(t)
	idx := NewIndex()
	idx.Append(ref(5, 15))
	idx.OffsetAllTimesBy(-5)
	is.Equal(idx.Earliest().StartTime, 0.0)
	is.Equal(idx.Earliest().EndTime, 10.0)
}

func TestIndexMergeAndEvict(t *testing.T) {
	is := is.New(t)
	idx := NewIndex()
	idx.Append(ref(0, 10), ref(10, 20))
	idx.MergeAndEvict([]*SegmentReference{ref(20, 30)}, 10)
	is.Equal(idx.Len(), 2) // first ref evicted, second kept, third appended
	is.Equal(idx.Earliest().StartTime, 10.0)
	is.Equal(idx.Last().StartTime, 20.0)
}

func TestIndexDropFirstN(t *testing.T) {
	is := is.New(t)
	idx := NewIndex()
	idx.Append(ref(0, 10), ref(10, 20), ref(20, 30))
	idx.DropFirstN(2)
	is.Equal(idx.Len(), 1)
	is.Equal(idx.Earliest().StartTime, 20.0)
}

func TestIndexKeepFirstN(t *testing.T) {
	is := is.New(t)
	idx := NewIndex()
	idx.Append(ref(0, 10), ref(10, 20), ref(20, 30))
	idx.KeepFirstN(2)
	is.Equal(idx.Len(), 2)
	is.Equal(idx.Last().StartTime, 10.0)
}
