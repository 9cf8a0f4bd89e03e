package segment

import (
	"strconv"
	"strings"

	"github.com/mogiioin/hls-manifest/m3u8"
)

// buildPartials parses EXT-X-PART and a trailing EXT-X-PRELOAD-HINT into
// PartialReferences, iff low-latency mode is enabled (spec §4.C). Partials
// without a parent EXTINF are only valid in low-latency mode; timing is
// synthesized by accumulating each partial's own DURATION.
func buildPartials(seg *m3u8.Segment, ctx *BuildContext) ([]*PartialReference, error) {
	if !ctx.LowLatency {
		return nil, nil
	}
	var out []*PartialReference
	cursor := 0.0
	for _, t := range seg.TagsNamed("EXT-X-PART") {
		p := &PartialReference{}
		if t.Attrs != nil {
			p.URI = t.Attrs.String("URI")
			if ctx.ResolveURI != nil {
				p.URI = ctx.ResolveURI(p.URI)
			}
			p.Independent = t.Attrs.YesNo("INDEPENDENT")
			p.Gap = t.Attrs.YesNo("GAP")
			dur, _ := t.Attrs.Float("DURATION")
			p.StartTime = cursor
			p.EndTime = cursor + dur
			cursor = p.EndTime
			if br, ok := t.Attrs.Raw("BYTERANGE"); ok {
				start, end, err := parsePartByterange(br)
				if err != nil {
					return nil, err
				}
				p.StartByte = start
				p.EndByte = end
			}
		}
		out = append(out, p)
	}
	if hint := seg.PreloadHint(); hint != nil && hint.Attrs != nil {
		p := &PartialReference{IsPreload: true, StartTime: cursor}
		p.URI = hint.Attrs.String("URI")
		if ctx.ResolveURI != nil {
			p.URI = ctx.ResolveURI(p.URI)
		}
		if start, ok := hint.Attrs.Int("BYTERANGE-START"); ok {
			p.StartByte = start
			if length, ok := hint.Attrs.Int("BYTERANGE-LENGTH"); ok {
				end := start + length - 1
				p.EndByte = &end
			}
			// No BYTERANGE-LENGTH: open-ended preload hint. Left as nil,
			// meaning "unbounded" (see DESIGN.md, preload-hint sentinel).
		}
		p.EndTime = p.StartTime
		out = append(out, p)
	}
	return out, nil
}

func parsePartByterange(s string) (start int64, end *int64, err error) {
	var length, offset int64
	if at := strings.IndexByte(s, '@'); at >= 0 {
		length, err = strconv.ParseInt(s[:at], 10, 64)
		if err != nil {
			return 0, nil, err
		}
		offset, err = strconv.ParseInt(s[at+1:], 10, 64)
		if err != nil {
			return 0, nil, err
		}
	} else {
		length, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, nil, err
		}
	}
	e := offset + length - 1
	return offset, &e, nil
}

// applyByterangeOptimization clears PartialReferences and marks the
// reference as byterange-optimized when every partial starts at byte 0,
// has no gap, and an init segment exists (spec §4.C): the parent
// reference alone can stand in for the full set of partials.
func applyByterangeOptimization(ref *SegmentReference) {
	if len(ref.PartialReferences) == 0 || ref.InitSegmentRef == nil {
		return
	}
	for _, p := range ref.PartialReferences {
		if p.StartByte != 0 || p.Gap {
			return
		}
	}
	ref.ByterangeOptimized = true
	ref.PartialReferences = nil
}
