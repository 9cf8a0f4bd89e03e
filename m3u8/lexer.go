package m3u8

/*
 This file implements the playlist lexer: a line-oriented scan over raw
 M3U8 text that emits Tag/Segment records without committing to a
 MediaPlaylist/MasterPlaylist shape, so later passes can resolve
 EXT-X-DEFINE variables before building the typed domain model.
*/

import (
	"bufio"
	"io"
	"strings"

	"github.com/mogiioin/hls-manifest/hlserrors"
)

// masterOnlyTags are tags whose presence marks a playlist as MASTER.
var masterOnlyTags = map[string]bool{
	"EXT-X-STREAM-INF":         true,
	"EXT-X-I-FRAME-STREAM-INF": true,
}

// Lex reads raw M3U8 text from r and produces a Playlist. The first
// non-empty line must be #EXTM3U; its absence is a fatal parse error
// (spec §4.A).
func Lex(r io.Reader) (*Playlist, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		id       uint64
		sawM3U   bool
		pending  []*Tag
		segments []*Segment
		allTags  []*Tag
		listType ListType
	)

	first := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if first {
			if line != "#EXTM3U" {
				return nil, hlserrors.New(hlserrors.RequiredTagMissing, "playlist does not start with #EXTM3U")
			}
			sawM3U = true
			first = false
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT"):
			id++
			tag := parseTagLine(id, line)
			allTags = append(allTags, tag)
			pending = append(pending, tag)
			if masterOnlyTags[tag.Name] {
				listType = Master
			}
		case strings.HasPrefix(line, "#"):
			// comment, discarded
		default:
			// URI line: closes the current segment
			segments = append(segments, &Segment{Tags: pending, URI: line})
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawM3U {
		return nil, hlserrors.New(hlserrors.RequiredTagMissing, "#EXTM3U absent")
	}

	// A trailing tag run with no following URI is only a valid segment if
	// it is a pending EXT-X-PRELOAD-HINT (spec §3: "A segment with no URI
	// is valid only if it contains EXT-X-PRELOAD-HINT").
	if len(pending) > 0 && firstTagNamed(pending, "EXT-X-PRELOAD-HINT") != nil {
		segments = append(segments, &Segment{Tags: pending})
	}

	if listType == Unknown {
		listType = Media
	}

	return &Playlist{Type: listType, Tags: allTags, Segments: segments}, nil
}

// parseTagLine splits a "#EXT-X-NAME:value" (or bare "#EXTM3U"-shaped)
// line into a Tag, detecting an attribute list by the presence of '='
// in the value per spec §4.A.
func parseTagLine(id uint64, line string) *Tag {
	body := line[1:] // drop leading '#'
	name := body
	value := ""
	if idx := strings.IndexByte(body, ':'); idx >= 0 {
		name = body[:idx]
		value = body[idx+1:]
	}
	tag := &Tag{ID: id, Name: name}
	if strings.Contains(value, "=") {
		tag.Attrs = parseAttrList(value)
	} else {
		tag.Value = value
	}
	return tag
}
