// Package segment builds SegmentReference and InitSegmentReference values
// from lexed playlist segments, and maintains the per-stream SegmentIndex
// those references are merged into: an append-only slice that evicts
// entries by predicate as the live availability window moves forward.
package segment

// Status is whether a segment reference is known to be fetchable.
type Status int

const (
	// Available is a segment reference for which a URI is known to exist.
	Available Status = iota
	// Missing marks a reference produced from an EXT-X-GAP tag: the slot
	// in the timeline is real but no data exists to fetch.
	Missing
)

func (s Status) String() string {
	if s == Missing {
		return "MISSING"
	}
	return "AVAILABLE"
}

// AESKey is the key state in effect when a segment or init segment was
// parsed (component E's AES branch).
type AESKey struct {
	BitsKey                int
	BlockCipherMode        string // "CBC" or "CTR"
	IV                     []byte // 16 bytes; nil means "derive from sequence number"
	FirstMediaSequenceNum  uint64
	FetchKey               func() ([]byte, error)
}

// InitSegmentReference is a container-format prelude shared by every
// segment that references the same EXT-X-MAP tag. At most one instance
// exists per (absoluteURI, byteRange) key; see Cache.
type InitSegmentReference struct {
	URI          string
	StartByte    int64
	EndByte      *int64 // nil means "to end of resource"
	AESKey       *AESKey
	Encrypted    bool
	MediaQuality string
	BoundaryEnd  *float64 // set when a discontinuity closes this init segment's logical boundary
}

func (i *InitSegmentReference) GetURIs() []string {
	if i == nil {
		return nil
	}
	return []string{i.URI}
}

// PartialReference is one EXT-X-PART (or a synthesized EXT-X-PRELOAD-HINT)
// fragment of a segment, used for low-latency HLS.
type PartialReference struct {
	URI         string
	StartByte   int64
	EndByte     *int64
	StartTime   float64
	EndTime     float64
	Independent bool
	Gap         bool
	IsPreload   bool
}

// SegmentReference is the unit a SegmentIndex holds.
type SegmentReference struct {
	StartTime float64
	EndTime   float64

	uris []string

	StartByte int64
	EndByte   *int64 // nil iff the segment extends to EOF

	InitSegmentRef *InitSegmentReference

	TimestampOffset   float64
	AppendWindowStart float64
	AppendWindowEnd   float64

	PartialReferences []*PartialReference
	// ByterangeOptimized is set when every partial had StartByte==0, no
	// gap, and an init segment existed: the parent reference stands in
	// for all partials and PartialReferences is cleared (spec §4.C).
	ByterangeOptimized bool

	TilesLayout  string
	TileDuration *float64

	SyncTime *float64 // absolute seconds since epoch, nil if not PDT-anchored

	Status Status
	AESKey *AESKey

	MimeType string

	DiscontinuitySequence int
	MediaSequenceNumber   uint64
}

// GetURIs returns the segment's fetchable URIs (normally exactly one).
func (s *SegmentReference) GetURIs() []string {
	return s.uris
}
