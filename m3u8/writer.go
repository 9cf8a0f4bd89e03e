package m3u8

/*
 This file re-serializes a Playlist back to M3U8 text using a
 bytes.Buffer-based Encode pass over the Tag/Segment record model.
*/

import (
	"bytes"
)

// Encode re-serializes p to M3U8 text. It round-trips whatever Lex
// produced (including any variable substitution already applied by
// ResolvePlaylist), which is what the byte-range round-trip property in
// spec §8 exercises. Tags are written in Playlist.Tags source order; a
// Segment's URI line is emitted once every tag belonging to it has been
// written.
func (p *Playlist) Encode() *bytes.Buffer {
	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")

	segIdx := 0
	emitted := make(map[uint64]bool, len(p.Tags))
	for _, t := range p.Tags {
		writeTag(&buf, t)
		emitted[t.ID] = true
		for segIdx < len(p.Segments) {
			seg := p.Segments[segIdx]
			if len(seg.Tags) == 0 || !emitted[seg.Tags[len(seg.Tags)-1].ID] {
				break
			}
			writeSegmentURI(&buf, seg)
			segIdx++
		}
	}
	// Any trailing segments with no tags at all (a bare URI line) never
	// trip the emitted-lookahead above and are flushed here.
	for segIdx < len(p.Segments) {
		writeSegmentURI(&buf, p.Segments[segIdx])
		segIdx++
	}

	return &buf
}

// String returns the encoded playlist as a string.
func (p *Playlist) String() string {
	return p.Encode().String()
}

func writeSegmentURI(buf *bytes.Buffer, seg *Segment) {
	if seg.URI == "" {
		return
	}
	buf.WriteString(seg.URI)
	buf.WriteByte('\n')
}

func writeTag(buf *bytes.Buffer, t *Tag) {
	buf.WriteByte('#')
	buf.WriteString(t.Name)
	switch {
	case t.Attrs != nil:
		buf.WriteByte(':')
		for i, k := range t.Attrs.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(k)
			buf.WriteByte('=')
			buf.WriteString(t.Attrs.vals[k])
		}
	case t.Value != "":
		buf.WriteByte(':')
		buf.WriteString(t.Value)
	}
	buf.WriteByte('\n')
}
