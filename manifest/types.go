// Package manifest implements the master-playlist builder (component G):
// it parses variant/media/i-frame/image/session tag groups into Stream
// and Variant descriptors, and assembles the top-level Manifest.
package manifest

import (
	"context"
	"sync"

	"github.com/mogiioin/hls-manifest/drm"
	"github.com/mogiioin/hls-manifest/fetch"
	"github.com/mogiioin/hls-manifest/loader"
	"github.com/mogiioin/hls-manifest/segment"
	"github.com/mogiioin/hls-manifest/timeline"
)

// StreamType is a rendition's content type.
type StreamType int

const (
	VideoType StreamType = iota
	AudioType
	TextType
	ImageType
)

// Stream is the normalized rendition descriptor (spec §3, Stream). Its
// segment index is nil until CreateSegmentIndex succeeds; this two-phase
// shape is the "skeletal Stream emitted first, fully resolved Stream
// computed in the load step" pattern from spec §9 Design Notes.
type Stream struct {
	ID       string
	Type     StreamType
	Codecs   string
	MimeType string
	Language string
	Label    string

	DRMInfos []*drm.Info
	KeyIDs   [][]byte

	Bandwidth int64

	Width             *int
	Height            *int
	FrameRate         *float64
	HDR               string
	ColorGamut        string
	VideoLayout       string
	ChannelsCount     *int
	AudioSamplingRate *int
	SpatialAudio      bool

	Roles          []string
	ClosedCaptions map[string]string
	TilesLayout    string

	mu       sync.Mutex
	index    *segment.Index
	inflight context.CancelFunc
	// loadFn fetches and parses the stream's media playlist. overrideURI,
	// when non-empty, replaces the stream's default URI (used by the
	// update scheduler to issue a blocking-reload request with
	// _HLS_msn/_HLS_part/_HLS_skip query parameters attached).
	loadFn func(ctx context.Context, overrideURI string) (*loader.StreamInfo, error)
	info   *loader.StreamInfo
}

// NewStream wraps a lazy-load closure into a skeletal Stream.
func NewStream(id string, typ StreamType, loadFn func(ctx context.Context, overrideURI string) (*loader.StreamInfo, error)) *Stream {
	return &Stream{ID: id, Type: typ, loadFn: loadFn}
}

// SegmentIndex returns the stream's index, or nil if it has not been
// loaded yet.
func (s *Stream) SegmentIndex() *segment.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// LoaderInfo returns the StreamInfo produced by the most recent load, or
// nil before the first CreateSegmentIndex call. The update scheduler
// reads NextMediaSequence/CanBlockReload/HasEndList from it between
// ticks.
func (s *Stream) LoaderInfo() *loader.StreamInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// URIs returns the stream's media playlist URI list, or nil for a stream
// not backed by a real fetch (e.g. a muxed-audio-in-video pseudo-stream).
func (s *Stream) URIs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return nil
	}
	return s.info.URIs
}

// ApplyUpdate merges a freshly loaded StreamInfo into the stream under
// lock: new references are merged into the existing index and evicted
// against availabilityStart, sequence/part bookkeeping and DRM info are
// replaced wholesale (component J, step 3-4).
func (s *Stream) ApplyUpdate(fresh *loader.StreamInfo, availabilityStart float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		s.index = fresh.Index
	} else {
		s.spliceSkippedUpdate(fresh)
		if first := fresh.Index.Earliest(); first != nil && fresh.SkippedSegments <= 0 {
			// A full reload restarts its start times at 0; re-anchor it
			// onto the existing timeline through the media sequence
			// number its first reference shares with a known reference.
			for _, r := range s.index.All() {
				if r.MediaSequenceNumber == first.MediaSequenceNumber {
					fresh.Index.OffsetAllTimesBy(r.StartTime - first.StartTime)
					break
				}
			}
		}
		s.index.MergeAndEvict(fresh.Index.All(), availabilityStart)
	}
	s.info = fresh
	s.applyLoadedInfo()
}

// spliceSkippedUpdate handles a delta-update response whose EXT-X-SKIP
// tag elided a leading run of segments the client already has (spec
// §4.J step 1, §8 scenario 5): it drops everything from the existing
// index past the still-known prefix, then re-anchors the fresh
// references so they continue seamlessly from where that prefix ends.
func (s *Stream) spliceSkippedUpdate(fresh *loader.StreamInfo) {
	if fresh.SkippedSegments <= 0 || s.info == nil {
		return
	}
	explicitFirst := fresh.FirstSequenceNumber + uint64(fresh.SkippedSegments)
	var knownPrefixLen int
	if explicitFirst > s.info.FirstSequenceNumber {
		knownPrefixLen = int(explicitFirst - s.info.FirstSequenceNumber)
	}
	s.index.KeepFirstN(knownPrefixLen)

	last := s.index.Last()
	first := fresh.Index.Earliest()
	if last != nil && first != nil {
		fresh.Index.OffsetAllTimesBy(last.EndTime - first.StartTime)
	}
}

// CreateSegmentIndex triggers the lazy load on first call. A caller that
// arrives after a load has completed receives the cached index. Callers
// that start while a load is still in flight are not coalesced: each one
// invokes loadFn itself, and the last to finish sets the stored index.
func (s *Stream) CreateSegmentIndex(ctx context.Context) (*segment.Index, error) {
	s.mu.Lock()
	if s.index != nil {
		idx := s.index
		s.mu.Unlock()
		return idx, nil
	}
	loadCtx, cancel := context.WithCancel(ctx)
	s.inflight = cancel
	s.mu.Unlock()

	info, err := s.loadFn(loadCtx, "")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight = nil
	if err != nil {
		return nil, err
	}
	s.info = info
	s.index = info.Index
	s.applyLoadedInfo()
	return s.index, nil
}

// applyLoadedInfo copies derived attributes from the loaded StreamInfo
// onto the Stream now that the full load has completed.
func (s *Stream) applyLoadedInfo() {
	if s.info == nil {
		return
	}
	if s.MimeType == "" {
		s.MimeType = s.info.MimeType
	}
	s.DRMInfos = s.info.DrmInfos
}

// Reload re-fetches the stream's media playlist at overrideURI (or the
// default URI, if empty) and merges the result into the existing index.
// It does not take the CreateSegmentIndex singleton path: the update
// scheduler calls it directly on already-loaded streams, one tick at a
// time, so no in-flight bookkeeping is needed beyond cancellation via
// ctx.
func (s *Stream) Reload(ctx context.Context, overrideURI string, availabilityStart float64) error {
	fresh, err := s.loadFn(ctx, overrideURI)
	if err != nil {
		return err
	}
	s.ApplyUpdate(fresh, availabilityStart)
	return nil
}

// CloseSegmentIndex releases the stream's index and cancels any
// in-flight fetch (spec §5, "safe concurrently with an in-flight
// createSegmentIndex()").
func (s *Stream) CloseSegmentIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	s.index = nil
	s.info = nil
}

// Variant pairs at most one audio and one video rendition at a single
// bandwidth point (spec §3, Variant).
type Variant struct {
	ID        string
	Language  string
	Primary   bool
	Audio     *Stream
	Video     *Stream
	Bandwidth int64
	DRMInfos  []*drm.Info

	AllowedByApplication bool
	AllowedByKeySystem   bool
}

// SessionData is a parsed EXT-X-SESSION-DATA tag: either an inline Value
// or a URI to fetch it from, identified by DataID and optionally scoped
// to Language.
type SessionData struct {
	DataID   string
	Language string
	Value    string
	URI      string
}

// ContentSteering is a parsed EXT-X-CONTENT-STEERING tag: the steering
// manifest to consult and the pathway this playlist belongs to.
type ContentSteering struct {
	ServerURI string
	PathwayID string
}

// Manifest is the top-level output of the builder (spec §3, Manifest).
type Manifest struct {
	PresentationTimeline *timeline.Timeline
	Variants             []*Variant
	TextStreams          []*Stream
	ImageStreams         []*Stream
	Type                 string
	SequenceMode         bool
	IsLowLatency         bool
	GapCount             int
	PeriodCount          int
	StartTime            *float64
	ServiceDescription   interface{}
	SessionData          []*SessionData
	ContentSteering      *ContentSteering
}

// Requester is re-exported for callers that only import manifest.
type Requester = fetch.Requester
