package m3u8

/*
 This file computes the minimum required EXT-X-VERSION for a lexed
 Playlist by scanning its Tag/Segment stream against the ladder of
 version-gated features (floating-point EXTINF, byte ranges, variable
 substitution, and so on) and taking the highest version any of them
 require.
*/

import "strings"

// minVer is the minimum version of the HLS protocol this package supports.
const minVer = uint8(3)

func updateMin(ver *uint8, reason *string, newVer uint8, newReason string) {
	if newVer <= *ver {
		return
	}
	*ver = newVer
	*reason = newReason
}

// CalcMinVersion returns the minimal EXT-X-VERSION required to play p,
// following the protocol-version-compatibility rules the teacher encoded
// against its own decoded model, reapplied here against p's raw Tags and
// Segments.
func (p *Playlist) CalcMinVersion() (ver uint8, reason string) {
	ver = minVer
	reason = "minimal version supported by this library"

	if p.Type == Master {
		p.calcMasterMinVersion(&ver, &reason)
	} else {
		p.calcMediaMinVersion(&ver, &reason)
	}

	// Variable substitution (EXT-X-DEFINE) raises the floor regardless of
	// playlist type.
	defines := p.TagsNamed("EXT-X-DEFINE")
	if len(defines) > 0 {
		updateMin(&ver, &reason, 8, "Variable substitution")
	}
	for _, d := range defines {
		if d.Attrs != nil && d.Attrs.Has("QUERYPARAM") {
			updateMin(&ver, &reason, 11, "EXT-X-DEFINE tag with a QUERYPARAM attribute")
		}
	}

	return ver, reason
}

func (p *Playlist) calcMasterMinVersion(ver *uint8, reason *string) {
	for _, t := range p.TagsNamed("EXT-X-MEDIA") {
		if t.Attrs == nil {
			continue
		}
		instreamID := t.Attrs.String("INSTREAM-ID")
		if strings.HasPrefix(instreamID, "SERVICE") {
			updateMin(ver, reason, 7, "SERVICE value for the INSTREAM-ID attribute of the EXT-X-MEDIA")
		}
		if instreamID != "" && t.Attrs.String("TYPE") != "CLOSED-CAPTIONS" {
			updateMin(ver, reason, 13, "EXT-X-MEDIA tag with INSTREAM-ID attribute for non CLOSED-CAPTIONS TYPE")
		}
	}

	for _, name := range []string{"EXT-X-STREAM-INF", "EXT-X-I-FRAME-STREAM-INF"} {
		for _, t := range p.TagsNamed(name) {
			if t.Attrs == nil {
				continue
			}
			for _, k := range t.Attrs.Keys() {
				if strings.HasPrefix(k, "REQ-") {
					updateMin(ver, reason, 12, "REQ- attribute")
				}
			}
		}
	}
}

func (p *Playlist) calcMediaMinVersion(ver *uint8, reason *string) {
	iframesOnly := p.Tag("EXT-X-I-FRAMES-ONLY") != nil

	for _, seg := range p.Segments {
		if seg.Tag("EXT-X-BYTERANGE") != nil {
			updateMin(ver, reason, 4, "EXT-X-BYTERANGE tag")
		}
		for _, key := range seg.TagsNamed("EXT-X-KEY") {
			checkKeyVersion(ver, reason, key)
		}
		if m := seg.Tag("EXT-X-MAP"); m != nil {
			updateMin(ver, reason, 5, "EXT-X-MAP tag")
			if !iframesOnly {
				updateMin(ver, reason, 6, "EXT-X-MAP tag in a Media Playlist that does not contain EXT-X-I-FRAMES-ONLY")
			}
		}
	}

	if iframesOnly {
		updateMin(ver, reason, 4, "EXT-X-I-FRAMES-ONLY tag")
	}

	for _, key := range p.TagsNamed("EXT-X-KEY") {
		checkKeyVersion(ver, reason, key)
	}
	if m := p.Tag("EXT-X-MAP"); m != nil {
		updateMin(ver, reason, 5, "EXT-X-MAP tag")
		if !iframesOnly {
			updateMin(ver, reason, 6, "EXT-X-MAP tag in a Media Playlist that does not contain EXT-X-I-FRAMES-ONLY")
		}
	}

	if len(p.TagsNamed("EXT-X-SKIP")) > 0 {
		updateMin(ver, reason, 9, "EXT-X-SKIP tag")
	}
}

func checkKeyVersion(ver *uint8, reason *string, key *Tag) {
	if key.Attrs == nil {
		return
	}
	if key.Attrs.String("METHOD") == "SAMPLE-AES" ||
		key.Attrs.Has("KEYFORMAT") || key.Attrs.Has("KEYFORMATVERSIONS") {
		updateMin(ver, reason, 5, "EXT-X-KEY tag with a METHOD of SAMPLE-AES, KEYFORMAT or KEYFORMATVERSIONS attributes")
	}
	if key.Attrs.Has("IV") {
		updateMin(ver, reason, 2, "IV attribute of the EXT-X-KEY tag")
	}
}
