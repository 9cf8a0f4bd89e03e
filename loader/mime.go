package loader

import "strings"

// ContentKind is which Stream.Type a MIME lookup is being performed for.
type ContentKind int

const (
	Audio ContentKind = iota
	Video
	Text
	Image
)

var audioExt = map[string]string{
	"mp4": "audio/mp4", "m4s": "audio/mp4", "m4i": "audio/mp4", "m4a": "audio/mp4", "m4f": "audio/mp4", "cmfa": "audio/mp4",
	"ts": "video/mp2t", "tsa": "video/mp2t",
	"aac": "audio/aac", "ac3": "audio/ac3", "ec3": "audio/ec3", "mp3": "audio/mpeg",
}

var videoExt = map[string]string{
	"mp4": "video/mp4", "mp4v": "video/mp4", "m4s": "video/mp4", "m4i": "video/mp4", "m4v": "video/mp4", "m4f": "video/mp4", "cmfv": "video/mp4",
	"ts": "video/mp2t", "tsv": "video/mp2t",
}

var textExt = map[string]string{
	"mp4": "application/mp4", "m4s": "application/mp4", "m4i": "application/mp4", "m4f": "application/mp4", "cmft": "application/mp4",
	"vtt": "text/vtt", "webvtt": "text/vtt",
	"ttml": "application/ttml+xml",
}

var imageExt = map[string]string{
	"jpg": "image/jpeg", "jpeg": "image/jpeg",
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
	"avif": "image/avif",
}

// GuessMimeType infers a rendition's MIME type from its URI's extension,
// per the per-kind extension table in spec §6.
func GuessMimeType(uri string, kind ContentKind) (string, bool) {
	ext := extensionOf(uri)
	var table map[string]string
	switch kind {
	case Audio:
		table = audioExt
	case Video:
		table = videoExt
	case Text:
		table = textExt
	case Image:
		table = imageExt
	}
	mt, ok := table[ext]
	return mt, ok
}

// RawAudioMimeType reports whether mt names a container-free audio codec
// (no init segment needed), per spec §4.C.
func RawAudioMimeType(mt string) bool {
	switch mt {
	case "audio/aac", "audio/ac3", "audio/ec3", "audio/mpeg":
		return true
	default:
		return false
	}
}

func extensionOf(uri string) string {
	uri = strings.SplitN(uri, "?", 2)[0]
	idx := strings.LastIndexByte(uri, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(uri[idx+1:])
}
