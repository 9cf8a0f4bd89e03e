package drm

import (
	"github.com/mogiioin/hls-manifest/hlserrors"
	"github.com/mogiioin/hls-manifest/m3u8"
	"github.com/mogiioin/hls-manifest/segment"
)

// Dispatch routes a parsed EXT-X-KEY / EXT-X-SESSION-KEY tag to its
// KEYFORMAT extractor. initRef, when non-nil, lets identity/FairPlay
// recover a default key id from the init segment's 'tenc' box via probe.
// A nil Info with a nil error means METHOD=NONE (ignored); an unknown
// KEYFORMAT returns a KeyformatsNotSupported error, which the loader
// downgrades to recoverable and skips.
func Dispatch(tag *m3u8.Tag, initRef *segment.InitSegmentReference, probe InitSegmentProbe) (*Info, error) {
	if tag.Attrs == nil {
		return nil, hlserrors.New(hlserrors.RequiredAttributeMissing, "EXT-X-KEY missing attribute list")
	}
	method := Method(tag.Attrs.String("METHOD"))
	if !validMethod(method) {
		return nil, hlserrors.New(hlserrors.KeyformatsNotSupported, "invalid EXT-X-KEY METHOD %q", method)
	}
	if method == MethodNone {
		return nil, nil
	}

	format := KeyFormat(tag.Attrs.String("KEYFORMAT"))
	if format == "" {
		format = Identity
	}

	switch format {
	case Identity:
		return extractClearKey(tag, initRef, probe)
	case Widevine:
		return extractWidevine(tag)
	case PlayReady:
		return extractPlayReady(tag)
	case FairPlay:
		return extractFairPlay(tag, initRef, probe)
	case WisePlay:
		return extractWisePlay(tag)
	default:
		if isAESMethod(method) {
			// AES-* tags are never KEYFORMAT-dispatched to an extractor:
			// the factory consumes them directly into an AESKey (see
			// BuildAESKey), so reaching here with an AES method and an
			// unrecognized KEYFORMAT is still a warn-and-skip case.
			return nil, hlserrors.New(hlserrors.KeyformatsNotSupported, "unsupported KEYFORMAT %q for AES method", format)
		}
		return nil, hlserrors.New(hlserrors.KeyformatsNotSupported, "unsupported KEYFORMAT %q", format)
	}
}

func validMethod(m Method) bool {
	switch m {
	case MethodNone, MethodSampleAES, MethodSampleAESCTR, MethodAES128, MethodAES256, MethodAES256CTR:
		return true
	default:
		return false
	}
}

func isAESMethod(m Method) bool {
	switch m {
	case MethodAES128, MethodAES256, MethodAES256CTR:
		return true
	default:
		return false
	}
}
