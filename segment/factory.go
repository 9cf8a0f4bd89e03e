package segment

import (
	"strconv"
	"strings"
	"time"

	"github.com/mogiioin/hls-manifest/hlserrors"
	"github.com/mogiioin/hls-manifest/m3u8"
)

// BuildContext carries the state the factory needs beyond the current
// Segment record: the previous reference (for byte-range and start-time
// inheritance), the init segment and AES key currently in scope, and the
// options that vary by loader configuration.
type BuildContext struct {
	Previous              *SegmentReference
	DefaultInitRef        *InitSegmentReference
	AESKey                *AESKey
	DiscontinuitySequence int
	MediaSequenceNumber   uint64
	LowLatency            bool

	// StartTimeHint is used when Previous is nil: either a per-stream
	// mediaSequenceToStartTime lookup, or the lowestSyncTime recovered
	// from an adjacent stream when no better anchor exists.
	StartTimeHint float64

	// ResolveURI expands variables and resolves a segment/partial URI
	// against the playlist's base URI. If nil, URIs are used verbatim.
	ResolveURI func(string) string
}

// Result is what Build produces for one Segment record.
type Result struct {
	Ref                   *SegmentReference
	Skipped               bool // true when no EXTINF and no partials: not a timed reference
	Discontinuity         bool
	DiscontinuitySequence int
	BitrateWeight         float64 // bitrate (bits/s) * duration, for weighted bandwidth accumulation
}

// Build constructs a SegmentReference from a lexed Segment, per component
// C's policies. cache is consulted for any EXT-X-MAP the segment carries.
func Build(seg *m3u8.Segment, ctx *BuildContext, cache *Cache) (*Result, error) {
	res := &Result{DiscontinuitySequence: ctx.DiscontinuitySequence}

	if seg.Tag("EXT-X-DISCONTINUITY") != nil {
		res.Discontinuity = true
		res.DiscontinuitySequence = ctx.DiscontinuitySequence + 1
		if ctx.DefaultInitRef != nil && ctx.Previous != nil {
			boundary := ctx.Previous.EndTime
			ctx.DefaultInitRef.BoundaryEnd = &boundary
		}
	}

	duration, hasExtinf := extinfDuration(seg)

	partials, err := buildPartials(seg, ctx)
	if err != nil {
		return nil, err
	}

	if !hasExtinf && len(partials) == 0 {
		res.Skipped = true
		return res, nil
	}
	if !hasExtinf {
		for _, p := range partials {
			duration += p.EndTime - p.StartTime
		}
	}

	startTime := ctx.StartTimeHint
	if ctx.Previous != nil {
		startTime = ctx.Previous.EndTime
	}
	endTime := startTime + duration
	if !hasExtinf && len(partials) > 0 {
		endTime = startTime + partials[len(partials)-1].EndTime
	}

	startByte, endByte, err := parseByterange(seg, ctx.Previous)
	if err != nil {
		return nil, err
	}

	initRef := ctx.DefaultInitRef
	if mapTag := seg.Tag("EXT-X-MAP"); mapTag != nil {
		initRef, err = buildInitRef(mapTag, ctx, cache)
		if err != nil {
			return nil, err
		}
	}

	status := Available
	if seg.Tag("EXT-X-GAP") != nil {
		status = Missing
	}

	var syncTime *float64
	if pdt := seg.Tag("EXT-X-PROGRAM-DATE-TIME"); pdt != nil {
		t, perr := time.Parse(time.RFC3339Nano, pdt.Value)
		if perr == nil {
			abs := float64(t.UnixNano()) / 1e9
			syncTime = &abs
		}
	}

	uri := seg.URI
	if ctx.ResolveURI != nil {
		uri = ctx.ResolveURI(uri)
	}

	ref := &SegmentReference{
		StartTime:             startTime,
		EndTime:               endTime,
		uris:                  []string{uri},
		StartByte:             startByte,
		EndByte:               endByte,
		InitSegmentRef:        initRef,
		PartialReferences:     partials,
		SyncTime:              syncTime,
		Status:                status,
		AESKey:                ctx.AESKey,
		DiscontinuitySequence: res.DiscontinuitySequence,
		MediaSequenceNumber:   ctx.MediaSequenceNumber,
	}

	applyByterangeOptimization(ref)

	if bw, ok := bitrateWeight(seg.Tag("EXT-X-BITRATE")); ok {
		res.BitrateWeight = bw * duration
	}

	res.Ref = ref
	return res, nil
}

// bitrateWeight reads the EXT-X-BITRATE decimal-integer value (kbit/s)
// and returns bits/s, for the weighted rendition-bandwidth computation.
func bitrateWeight(t *m3u8.Tag) (float64, bool) {
	if t == nil {
		return 0, false
	}
	kbps, err := strconv.ParseFloat(strings.TrimSpace(t.Value), 64)
	if err != nil {
		return 0, false
	}
	return kbps * 1000, true
}

func extinfDuration(seg *m3u8.Segment) (float64, bool) {
	t := seg.Tag("EXTINF")
	if t == nil {
		return 0, false
	}
	value := t.Value
	comma := strings.IndexByte(value, ',')
	durStr := value
	if comma >= 0 {
		durStr = value[:comma]
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(durStr), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

// parseByterange parses EXT-X-BYTERANGE ("length@offset" or "length"); an
// absent offset inherits previous.EndByte+1 (spec §4.C).
func parseByterange(seg *m3u8.Segment, previous *SegmentReference) (startByte int64, endByte *int64, err error) {
	t := seg.Tag("EXT-X-BYTERANGE")
	if t == nil {
		return 0, nil, nil
	}
	value := t.Value
	var length int64
	var offset int64
	hasOffset := false
	if at := strings.IndexByte(value, '@'); at >= 0 {
		length, err = strconv.ParseInt(value[:at], 10, 64)
		if err != nil {
			return 0, nil, hlserrors.New(hlserrors.RequiredAttributeMissing, "invalid EXT-X-BYTERANGE length: %v", err)
		}
		offset, err = strconv.ParseInt(value[at+1:], 10, 64)
		if err != nil {
			return 0, nil, hlserrors.New(hlserrors.RequiredAttributeMissing, "invalid EXT-X-BYTERANGE offset: %v", err)
		}
		hasOffset = true
	} else {
		length, err = strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, nil, hlserrors.New(hlserrors.RequiredAttributeMissing, "invalid EXT-X-BYTERANGE length: %v", err)
		}
	}
	if !hasOffset {
		if previous != nil && previous.EndByte != nil {
			offset = *previous.EndByte + 1
		} else {
			offset = 0
		}
	}
	end := offset + length - 1
	return offset, &end, nil
}
