package manifest

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mogiioin/hls-manifest/drm"
	"github.com/mogiioin/hls-manifest/fetch"
	"github.com/mogiioin/hls-manifest/hlserrors"
	"github.com/mogiioin/hls-manifest/loader"
	"github.com/mogiioin/hls-manifest/m3u8"
	"github.com/mogiioin/hls-manifest/segment"
	"github.com/mogiioin/hls-manifest/timeline"
)

// Options configures Build.
type Options struct {
	LowLatency bool
	InitCache  *segment.Cache
}

type mediaKey struct {
	Type, GroupID, Name, Language string
}

// Build parses master playlist text into a Manifest of skeletal
// variants/streams, each wired to lazy-load its media playlist on first
// CreateSegmentIndex call (spec §4.G).
func Build(ctx context.Context, req fetch.Requester, masterURI string, masterText string, opts Options) (*Manifest, error) {
	raw, err := m3u8.Lex(strings.NewReader(masterText))
	if err != nil {
		return nil, err
	}
	if raw.Type != m3u8.Master {
		return nil, hlserrors.New(hlserrors.MasterPlaylistNotProvided, "input is not a multivariant playlist")
	}

	scope := m3u8.BuildVariableScope(raw.Tags, masterURI, nil)
	p := m3u8.ResolvePlaylist(raw, scope)

	if opts.InitCache == nil {
		opts.InitCache = segment.NewCache()
	}

	mediaStreams := make(map[mediaKey]*Stream)
	closedCaptions := make(map[string]string)
	var textStreams, imageStreams []*Stream

	for _, t := range p.TagsNamed("EXT-X-MEDIA") {
		if t.Attrs == nil {
			continue
		}
		mediaType := t.Attrs.String("TYPE")
		key := mediaKey{
			Type:     mediaType,
			GroupID:  t.Attrs.String("GROUP-ID"),
			Name:     t.Attrs.String("NAME"),
			Language: t.Attrs.String("LANGUAGE"),
		}

		if mediaType == "CLOSED-CAPTIONS" {
			instreamID := t.Attrs.String("INSTREAM-ID")
			closedCaptions[renameClosedCaptionChannel(instreamID)] = key.Language
			continue
		}

		if existing, ok := mediaStreams[key]; ok {
			if uri, ok := t.Attrs.Raw("URI"); ok {
				existing.loadFn = unionLoadFn(existing.loadFn, deQuote(uri), req, opts, streamTypeFor(mediaType))
			}
			continue
		}

		st := newMediaStream(t, key, req, opts, scope)
		mediaStreams[key] = st
		switch mediaType {
		case "SUBTITLES":
			textStreams = append(textStreams, st)
		case "AUDIO":
			if !t.Attrs.Has("URI") {
				// Muxed audio-in-video: no URI and no load function; only the
				// MIME type is forced. No sentinel URI is assigned.
				st.loadFn = nil
				st.MimeType = "video/mp2t"
			}
		}
	}

	var variants []*Variant
	var manifestDRM []*drm.Info
	for _, t := range p.TagsNamed("EXT-X-SESSION-KEY") {
		info, derr := drm.Dispatch(t, nil, nil)
		if derr == nil && info != nil {
			manifestDRM = append(manifestDRM, info)
		}
	}

	sessionData := buildSessionData(p.TagsNamed("EXT-X-SESSION-DATA"))
	steering := buildContentSteering(p.TagsNamed("EXT-X-CONTENT-STEERING"))

	for _, seg := range p.Segments {
		stream := seg.Tag("EXT-X-STREAM-INF")
		if stream == nil || stream.Attrs == nil {
			continue
		}
		v, err := buildVariant(seg.URI, stream, mediaStreams, req, opts, scope)
		if err != nil {
			return nil, err
		}
		v.DRMInfos = append(v.DRMInfos, manifestDRM...)
		variants = append(variants, v)
	}

	for _, t := range p.TagsNamed("EXT-X-IMAGE-STREAM-INF") {
		if t.Attrs == nil {
			continue
		}
		uri := t.Attrs.String("URI")
		st := NewStream(uri, ImageType, nil)
		st.Codecs = t.Attrs.String("CODECS")
		imageStreams = append(imageStreams, st)
	}

	mf := &Manifest{
		PresentationTimeline: timeline.New(timeline.Live),
		Variants:             dedupeVariants(variants),
		TextStreams:          textStreams,
		ImageStreams:         imageStreams,
		Type:                 "HLS",
		IsLowLatency:         opts.LowLatency,
		PeriodCount:          1,
		SessionData:          sessionData,
		ContentSteering:      steering,
	}
	for _, st := range mediaStreams {
		if st.ClosedCaptions == nil {
			st.ClosedCaptions = closedCaptions
		}
	}
	return mf, nil
}

func streamTypeFor(mediaType string) StreamType {
	switch mediaType {
	case "AUDIO":
		return AudioType
	case "VIDEO":
		return VideoType
	case "SUBTITLES":
		return TextType
	default:
		return TextType
	}
}

func newMediaStream(t *m3u8.Tag, key mediaKey, req fetch.Requester, opts Options, scope *m3u8.VariableScope) *Stream {
	typ := streamTypeFor(key.Type)
	st := NewStream(key.GroupID+"/"+key.Name, typ, nil)
	st.Language = key.Language
	st.Label = t.Attrs.String("NAME")
	if t.Attrs.YesNo("DEFAULT") {
		st.Roles = append(st.Roles, "main")
	}
	if uri, ok := t.Attrs.Raw("URI"); ok {
		st.loadFn = singleLoadFn(deQuote(uri), req, opts, typ, scope)
	}
	return st
}

func singleLoadFn(uri string, req fetch.Requester, opts Options, typ StreamType, scope *m3u8.VariableScope) func(context.Context, string) (*loader.StreamInfo, error) {
	return func(ctx context.Context, overrideURI string) (*loader.StreamInfo, error) {
		fetchURI := uri
		if overrideURI != "" {
			fetchURI = overrideURI
		}
		return loader.Load(ctx, req, []string{fetchURI}, loader.Options{
			ContentKind: contentKindFor(typ),
			LowLatency:  opts.LowLatency,
			MasterScope: scope,
			InitCache:   opts.InitCache,
		})
	}
}

// unionLoadFn keeps the first registered load function: per spec §4.G,
// media tags that share a grouping key collapse onto a single StreamInfo
// whose URI list is the union, but resolving more than one concrete
// rendition into a single lazily-loaded index is a content-steering
// concern this builder defers to the existing entry (see DESIGN.md).
func unionLoadFn(existing func(context.Context, string) (*loader.StreamInfo, error), _ string, _ fetch.Requester, _ Options, _ StreamType) func(context.Context, string) (*loader.StreamInfo, error) {
	return existing
}

func contentKindFor(typ StreamType) loader.ContentKind {
	switch typ {
	case AudioType:
		return loader.Audio
	case VideoType:
		return loader.Video
	case TextType:
		return loader.Text
	case ImageType:
		return loader.Image
	default:
		return loader.Video
	}
}

func buildVariant(uri string, stream *m3u8.Tag, mediaStreams map[mediaKey]*Stream, req fetch.Requester, opts Options, scope *m3u8.VariableScope) (*Variant, error) {
	bw, _ := stream.Attrs.Int("BANDWIDTH")
	codecs := stream.Attrs.String("CODECS")
	if sup, ok := stream.Attrs.Raw("SUPPLEMENTAL-CODECS"); ok {
		codecs = supplementalCodecs(codecs, deQuote(sup))
	}

	v := &Variant{
		ID:                   uuid.NewString(),
		Bandwidth:            bw,
		AllowedByApplication: true,
		AllowedByKeySystem:   true,
	}

	if audioGroup, ok := stream.Attrs.Raw("AUDIO"); ok {
		v.Audio = lookupGroup(mediaStreams, "AUDIO", deQuote(audioGroup))
	}
	if videoGroup, ok := stream.Attrs.Raw("VIDEO"); ok {
		v.Video = lookupGroup(mediaStreams, "VIDEO", deQuote(videoGroup))
	}
	if v.Video == nil {
		isAudioOnly := !stream.Attrs.Has("RESOLUTION") && !stream.Attrs.Has("FRAME-RATE") && !hasVideoCodec(codecs)
		typ := VideoType
		if isAudioOnly {
			typ = AudioType
		}
		v.Video = NewStream(uri, typ, singleLoadFn(uri, req, opts, typ, scope))
		v.Video.Codecs = codecs
		if w, h, ok := stream.Attrs.Resolution("RESOLUTION"); ok {
			v.Video.Width, v.Video.Height = &w, &h
		}
		if fr, ok := stream.Attrs.Float("FRAME-RATE"); ok {
			v.Video.FrameRate = &fr
		}
		if typ == AudioType {
			v.Audio = v.Video
			v.Video = nil
		}
	} else {
		v.Video.Codecs = codecs
	}
	return v, nil
}

// buildSessionData parses every EXT-X-SESSION-DATA tag into a
// SessionData entry; a tag with neither VALUE nor URI is skipped since it
// carries nothing to dispatch.
func buildSessionData(tags []*m3u8.Tag) []*SessionData {
	var out []*SessionData
	for _, t := range tags {
		if t.Attrs == nil {
			continue
		}
		dataID := t.Attrs.String("DATA-ID")
		if dataID == "" {
			continue
		}
		sd := &SessionData{
			DataID:   dataID,
			Language: t.Attrs.String("LANGUAGE"),
			Value:    t.Attrs.String("VALUE"),
			URI:      t.Attrs.String("URI"),
		}
		if sd.Value == "" && sd.URI == "" {
			continue
		}
		out = append(out, sd)
	}
	return out
}

// buildContentSteering parses the (at most one meaningful) EXT-X-CONTENT-
// STEERING tag. PATHWAY-ID defaults to "." per RFC 8216bis when absent.
func buildContentSteering(tags []*m3u8.Tag) *ContentSteering {
	for _, t := range tags {
		if t.Attrs == nil {
			continue
		}
		serverURI := t.Attrs.String("SERVER-URI")
		if serverURI == "" {
			continue
		}
		pathwayID := t.Attrs.String("PATHWAY-ID")
		if pathwayID == "" {
			pathwayID = "."
		}
		return &ContentSteering{ServerURI: serverURI, PathwayID: pathwayID}
	}
	return nil
}

func lookupGroup(mediaStreams map[mediaKey]*Stream, typ, groupID string) *Stream {
	for k, st := range mediaStreams {
		if k.Type == typ && k.GroupID == groupID {
			return st
		}
	}
	return nil
}

func hasVideoCodec(codecs string) bool {
	for _, c := range strings.Split(codecs, ",") {
		c = strings.TrimSpace(c)
		if strings.HasPrefix(c, "avc1") || strings.HasPrefix(c, "avc3") ||
			strings.HasPrefix(c, "hvc1") || strings.HasPrefix(c, "hev1") ||
			strings.HasPrefix(c, "av01") || strings.HasPrefix(c, "vp09") {
			return true
		}
	}
	return false
}

// supplementalCodecs replaces the video codec entry in codecs with the
// supplemental codec string, preserving any audio codec (spec §4.G,
// SUPPLEMENTAL-CODECS).
func supplementalCodecs(codecs, supplemental string) string {
	sup := strings.SplitN(supplemental, "/", 2)[0]
	parts := strings.Split(codecs, ",")
	if len(parts) < 2 {
		return sup
	}
	return sup + "," + strings.Join(parts[1:], ",")
}

func dedupeVariants(variants []*Variant) []*Variant {
	seen := make(map[string]bool, len(variants))
	out := make([]*Variant, 0, len(variants))
	for _, v := range variants {
		key := variantKey(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func variantKey(v *Variant) string {
	var vURI, aURI, codecs string
	if v.Video != nil {
		vURI = v.Video.ID
		codecs = v.Video.Codecs
	}
	if v.Audio != nil {
		aURI = v.Audio.ID
	}
	return vURI + "|" + aURI + "|" + codecs
}

// renameClosedCaptionChannel maps a SERVICEn instream id to "svcn";
// CC1..CC4 and any other id are returned unchanged.
func renameClosedCaptionChannel(instreamID string) string {
	if strings.HasPrefix(instreamID, "SERVICE") {
		n := strings.TrimPrefix(instreamID, "SERVICE")
		return "svc" + n
	}
	return instreamID
}

func deQuote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
