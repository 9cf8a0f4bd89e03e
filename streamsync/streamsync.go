// Package streamsync aligns concurrently loaded streams onto a single
// presentation timeline, by EXT-X-PROGRAM-DATE-TIME when every active
// stream has one, or by media sequence number otherwise (component H).
package streamsync

import "github.com/mogiioin/hls-manifest/segment"

// Stream is the minimal view the synchronizer needs of a loaded
// rendition: its segment index and the first media sequence number its
// playlist started at.
type Stream struct {
	Index               *segment.Index
	FirstSequenceNumber  uint64
}

// Synchronizer runs once per stream type, after enough streams have
// loaded. It is idempotent: a second Sync call after success is a no-op
// (spec §4.H, "memoized").
type Synchronizer struct {
	done            bool
	lowestSyncTime  *float64
	minSequenceNum  *uint64
}

// New returns an unsynced Synchronizer.
func New() *Synchronizer {
	return &Synchronizer{}
}

// Sync aligns streams in place. It picks PDT sync when every stream's
// earliest reference carries a SyncTime, and sequence-number sync
// otherwise. A nil or empty streams slice is a no-op.
func (s *Synchronizer) Sync(streams []*Stream) {
	if s.done || len(streams) == 0 {
		return
	}
	if allHavePDT(streams) {
		s.syncByPDT(streams)
	} else {
		s.syncBySequence(streams)
	}
	s.done = true
}

func allHavePDT(streams []*Stream) bool {
	for _, st := range streams {
		e := st.Index.Earliest()
		if e == nil || e.SyncTime == nil {
			return false
		}
	}
	return true
}

// syncByPDT finds lowestSyncTime = min syncTime of the earliest reference
// across all streams, then offsets each stream by
// δ = (segment0.syncTime − lowestSyncTime) − segment0.startTime so every
// stream's t=0 corresponds to the same wall-clock instant.
func (s *Synchronizer) syncByPDT(streams []*Stream) {
	lowest := *streams[0].Index.Earliest().SyncTime
	for _, st := range streams[1:] {
		if t := *st.Index.Earliest().SyncTime; t < lowest {
			lowest = t
		}
	}
	s.lowestSyncTime = &lowest

	for _, st := range streams {
		e := st.Index.Earliest()
		delta := (*e.SyncTime - lowest) - e.StartTime
		st.Index.OffsetAllTimesBy(delta)
	}
}

// syncBySequence finds minSequenceNumber = max(firstSequenceNumberOfStreams),
// drops each stream's leading references up to that sequence number, then
// re-anchors the remaining references at t=0.
func (s *Synchronizer) syncBySequence(streams []*Stream) {
	min := streams[0].FirstSequenceNumber
	for _, st := range streams[1:] {
		if st.FirstSequenceNumber > min {
			min = st.FirstSequenceNumber
		}
	}
	s.minSequenceNum = &min

	for _, st := range streams {
		drop := int(min - st.FirstSequenceNumber)
		st.Index.DropFirstN(drop)
		if e := st.Index.Earliest(); e != nil {
			st.Index.OffsetAllTimesBy(-e.StartTime)
		}
	}
}

// Done reports whether this synchronizer has already committed its
// offsets.
func (s *Synchronizer) Done() bool { return s.done }
