package drm

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/mogiioin/hls-manifest/hlserrors"
	"github.com/mogiioin/hls-manifest/m3u8"
	"github.com/mogiioin/hls-manifest/segment"
)

// extractClearKey builds the Info for an identity KEYFORMAT tag: the tag's
// IV, when present, becomes InitData, and KeyID is the init segment's
// default KID when initRef and probe are both given. It builds no key-id
// to key map and reads no key id from the tag itself.
func extractClearKey(tag *m3u8.Tag, initRef *segment.InitSegmentReference, probe InitSegmentProbe) (*Info, error) {
	info := &Info{KeySystem: "org.w3.clearkey", Scheme: SchemeFor(Method(tag.Attrs.String("METHOD")))}
	if iv, ok := tag.Attrs.Hex("IV"); ok {
		info.InitData = iv
	}
	if initRef != nil && probe != nil {
		kid, err := probe(initRef)
		if err == nil {
			info.KeyID = kid
		}
	}
	return info, nil
}

// extractWidevine treats the EXT-X-KEY URI's data portion as a PSSH box
// carried verbatim as init data (spec §4.E, Widevine row).
func extractWidevine(tag *m3u8.Tag) (*Info, error) {
	data, err := decodeKeyURIData(tag)
	if err != nil {
		return nil, err
	}
	return &Info{
		KeySystem: "com.widevine.alpha",
		InitData:  data,
		Scheme:    SchemeFor(Method(tag.Attrs.String("METHOD"))),
	}, nil
}

// extractWisePlay mirrors the Widevine shape with the WisePlay system id.
func extractWisePlay(tag *m3u8.Tag) (*Info, error) {
	data, err := decodeKeyURIData(tag)
	if err != nil {
		return nil, err
	}
	return &Info{
		KeySystem: "com.huawei.wiseplay",
		InitData:  data,
		Scheme:    SchemeFor(Method(tag.Attrs.String("METHOD"))),
	}, nil
}

// playReadySystemID is the PlayReady protection system id used in the
// PSSH box's system_id field (spec §4.E, PlayReady row).
var playReadySystemID = [16]byte{
	0x9a, 0x04, 0xf0, 0x79, 0x98, 0x40, 0x42, 0x86,
	0xab, 0x92, 0xe6, 0x5b, 0xe0, 0x88, 0x5f, 0x95,
}

// extractPlayReady wraps the embedded PlayReady Object (PRO) into a PSSH
// carrier and extracts the license-server URI from its embedded XML
// header when present (spec §4.E, PlayReady row). Unlike Widevine/WisePlay,
// whose EXT-X-KEY URI data is already a full PSSH box, the PlayReady URI
// carries only the bare PRO, so the box has to be built here. XML parsing
// is best effort: a malformed PRO still yields InitData with no
// LicenseServerURI.
func extractPlayReady(tag *m3u8.Tag) (*Info, error) {
	pro, err := decodeKeyURIData(tag)
	if err != nil {
		return nil, err
	}
	info := &Info{
		KeySystem: "com.microsoft.playready",
		InitData:  buildPlayReadyPSSH(pro),
		Scheme:    SchemeFor(Method(tag.Attrs.String("METHOD"))),
	}
	if uri := findPlayReadyLicenseURI(pro); uri != "" {
		info.LicenseServerURI = uri
	}
	return info, nil
}

// buildPlayReadyPSSH wraps pro (a raw PlayReady Object) in an ISOBMFF PSSH
// box: a 4-byte big-endian box size, the 'pssh' fourcc, a 4-byte
// version/flags field, the 16-byte PlayReady system id, a 4-byte
// big-endian data size, and the data itself.
func buildPlayReadyPSSH(pro []byte) []byte {
	const headerLen = 4 + 4 + 4 + 16 + 4
	boxLen := headerLen + len(pro)
	box := make([]byte, boxLen)

	binary.BigEndian.PutUint32(box[0:4], uint32(boxLen))
	copy(box[4:8], "pssh")
	binary.BigEndian.PutUint32(box[8:12], 0) // version 0, flags 0
	copy(box[12:28], playReadySystemID[:])
	binary.BigEndian.PutUint32(box[28:32], uint32(len(pro)))
	copy(box[32:], pro)

	return box
}

// extractFairPlay emits a zero-length 'sinf' init-data carrier and
// records the license URI (spec §4.E, FairPlay row).
func extractFairPlay(tag *m3u8.Tag, initRef *segment.InitSegmentReference, probe InitSegmentProbe) (*Info, error) {
	info := &Info{
		KeySystem:        "com.apple.fps",
		LicenseServerURI: tag.Attrs.String("URI"),
		InitData:         []byte{},
		Scheme:           SchemeFor(Method(tag.Attrs.String("METHOD"))),
	}
	if initRef != nil && probe != nil {
		kid, err := probe(initRef)
		if err == nil {
			info.KeyID = kid
		}
	}
	return info, nil
}

func decodeKeyURIData(tag *m3u8.Tag) ([]byte, error) {
	uri := tag.Attrs.String("URI")
	const prefix = "data:text/plain;base64,"
	if len(uri) > len(prefix) && uri[:len(prefix)] == prefix {
		b, err := base64.StdEncoding.DecodeString(uri[len(prefix):])
		if err != nil {
			return nil, hlserrors.New(hlserrors.RequiredAttributeMissing, "invalid base64 in EXT-X-KEY URI: %v", err)
		}
		return b, nil
	}
	return []byte(uri), nil
}

// findPlayReadyLicenseURI does a minimal scan for a LA_URL element
// inside a decoded PlayReady Object, without pulling in a full WRMHEADER
// XML schema.
func findPlayReadyLicenseURI(pro []byte) string {
	const open, close = "<LA_URL>", "</LA_URL>"
	s := string(pro)
	start := indexOf(s, open)
	if start < 0 {
		return ""
	}
	start += len(open)
	end := indexOf(s[start:], close)
	if end < 0 {
		return ""
	}
	return s[start : start+end]
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// defaultIV derives the 16-byte big-endian media-sequence-number IV used
// when an AES-* EXT-X-KEY carries no IV attribute (spec §4.E, AES row).
func defaultIV(mediaSequenceNumber uint64) []byte {
	iv := make([]byte, 16)
	binary.BigEndian.PutUint64(iv[8:], mediaSequenceNumber)
	return iv
}
