// Package drm dispatches EXT-X-KEY / EXT-X-SESSION-KEY tags to the
// per-scheme extractor named by their KEYFORMAT attribute, and maintains
// the AES-128/256 key cache used by the segment factory. Each scheme gets
// its own extractor function rather than an interface hierarchy: there is
// exactly one operation per format (extract key/init data), selected by a
// plain string-enum switch.
package drm

import "github.com/mogiioin/hls-manifest/segment"

// Method is the EXT-X-KEY METHOD attribute. Only the values below are
// valid (spec §4.E); anything else is a dispatch error.
type Method string

const (
	MethodNone         Method = "NONE"
	MethodSampleAES    Method = "SAMPLE-AES"
	MethodSampleAESCTR Method = "SAMPLE-AES-CTR"
	MethodAES128       Method = "AES-128"
	MethodAES256       Method = "AES-256"
	MethodAES256CTR    Method = "AES-256-CTR"
)

// Scheme is the MediaSource encryption scheme implied by Method.
type Scheme string

const (
	SchemeNone Scheme = ""
	SchemeCenc Scheme = "cenc" // SAMPLE-AES-CTR
	SchemeCbcs Scheme = "cbcs" // SAMPLE-AES
)

// SchemeFor maps an EXT-X-KEY METHOD to its MediaSource encryption scheme.
func SchemeFor(m Method) Scheme {
	switch m {
	case MethodSampleAESCTR:
		return SchemeCenc
	case MethodSampleAES:
		return SchemeCbcs
	default:
		return SchemeNone
	}
}

// KeyFormat is the EXT-X-KEY KEYFORMAT attribute, defaulting to Identity
// when absent.
type KeyFormat string

const (
	Identity  KeyFormat = "identity"
	Widevine  KeyFormat = "urn:uuid:edef8ba9-79d6-4ace-a3c8-27dcd51d21ed"
	PlayReady KeyFormat = "com.microsoft.playready"
	FairPlay  KeyFormat = "com.apple.streamingkeydelivery"
	WisePlay  KeyFormat = "urn:uuid:3d5e6d35-9b9a-41e8-b843-dd3c6e72c42c"
)

// Info is the common result of every extractor: enough for the loader to
// attach a DrmInfo to a Stream (spec §3, Stream.drmInfos).
type Info struct {
	KeySystem        string
	LicenseServerURI string
	InitData         []byte // PSSH (or scheme-specific) init data carrier
	KeyID            []byte
	Scheme           Scheme
}

// InitSegmentProbe looks up a default key id embedded in an init
// segment's 'tenc' box, for extractors that need it when no explicit key
// id is present on the tag (identity and FairPlay).
type InitSegmentProbe func(ref *segment.InitSegmentReference) ([]byte, error)
