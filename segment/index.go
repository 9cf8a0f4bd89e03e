package segment

import "sort"

// Index is an append-only (per update cycle), ordered collection of
// SegmentReferences. The list is monotonically non-decreasing in
// StartTime (spec §3, SegmentIndex).
type Index struct {
	refs []*SegmentReference
}

func NewIndex() *Index {
	return &Index{}
}

// Len returns the number of references currently held.
func (x *Index) Len() int { return len(x.refs) }

// All returns the references in order. Callers must not mutate the
// returned slice.
func (x *Index) All() []*SegmentReference { return x.refs }

// Earliest returns the first reference, or nil if the index is empty.
func (x *Index) Earliest() *SegmentReference {
	if len(x.refs) == 0 {
		return nil
	}
	return x.refs[0]
}

// Last returns the final reference, or nil if the index is empty.
func (x *Index) Last() *SegmentReference {
	if len(x.refs) == 0 {
		return nil
	}
	return x.refs[len(x.refs)-1]
}

// Append adds new references to the end of the index in order. The
// caller is responsible for ensuring refs continue the index's
// StartTime ordering (true of any single playlist walk, per component C).
func (x *Index) Append(refs ...*SegmentReference) {
	x.refs = append(x.refs, refs...)
}

// SeekByTime returns the reference covering t, or the first reference
// starting after t if none covers it exactly, or nil if t is past the
// end of the index.
func (x *Index) SeekByTime(t float64) *SegmentReference {
	i := sort.Search(len(x.refs), func(i int) bool {
		return x.refs[i].EndTime > t
	})
	if i == len(x.refs) {
		return nil
	}
	return x.refs[i]
}

// EvictBefore drops every reference whose EndTime is at or before
// availabilityStart, returning the number evicted.
func (x *Index) EvictBefore(availabilityStart float64) int {
	i := 0
	for i < len(x.refs) && x.refs[i].EndTime <= availabilityStart {
		i++
	}
	if i == 0 {
		return 0
	}
	x.refs = append([]*SegmentReference(nil), x.refs[i:]...)
	return i
}

// DropFirstN removes the first n references. Used by the stream
// synchronizer to align multiple streams onto a common starting sequence
// number before re-anchoring them at t=0.
func (x *Index) DropFirstN(n int) {
	if n <= 0 {
		return
	}
	if n >= len(x.refs) {
		x.refs = nil
		return
	}
	x.refs = append([]*SegmentReference(nil), x.refs[n:]...)
}

// KeepFirstN truncates the index down to at most its first n references,
// discarding the rest. Used when a delta update's EXT-X-SKIP tag confirms
// only the first n previously-known segments survive; the server's fresh
// data replaces everything after them.
func (x *Index) KeepFirstN(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(x.refs) {
		return
	}
	x.refs = append([]*SegmentReference(nil), x.refs[:n]...)
}

// OffsetAllTimesBy shifts every reference's StartTime/EndTime (and any
// partial references within it) by delta. Used by the stream synchronizer
// (component H) to re-anchor a stream's timeline at t=0.
func (x *Index) OffsetAllTimesBy(delta float64) {
	for _, r := range x.refs {
		r.StartTime += delta
		r.EndTime += delta
		for _, p := range r.PartialReferences {
			p.StartTime += delta
			p.EndTime += delta
		}
	}
}

// ForEachTopLevel calls fn for every top-level (non-partial) reference in
// order.
func (x *Index) ForEachTopLevel(fn func(*SegmentReference)) {
	for _, r := range x.refs {
		fn(r)
	}
}

// MergeAndEvict appends fresh (their StartTime is greater than the
// index's current last StartTime) and evicts everything before
// availabilityStart, in the order the update scheduler needs them
// applied (component J, step 3).
func (x *Index) MergeAndEvict(fresh []*SegmentReference, availabilityStart float64) {
	lastKnown := 0.0
	if last := x.Last(); last != nil {
		lastKnown = last.StartTime
	}
	for _, r := range fresh {
		if x.Len() == 0 || r.StartTime > lastKnown {
			x.refs = append(x.refs, r)
		}
	}
	x.EvictBefore(availabilityStart)
}
