// Package loader implements the media-playlist loader (component F): on
// demand, fetches a media playlist, runs the lexer/variable-resolver/
// segment-factory/init-cache/DRM-dispatcher pipeline over it, and
// produces a StreamInfo.
package loader

import (
	"context"
	"strconv"
	"strings"

	"github.com/mogiioin/hls-manifest/drm"
	"github.com/mogiioin/hls-manifest/fetch"
	"github.com/mogiioin/hls-manifest/hlserrors"
	"github.com/mogiioin/hls-manifest/m3u8"
	"github.com/mogiioin/hls-manifest/segment"
)

// PresentationType is the per-stream presentation type inferred from
// EXT-X-PLAYLIST-TYPE / EXT-X-ENDLIST (spec §4.F step 4).
type PresentationType int

const (
	LivePresentation PresentationType = iota
	EventPresentation
	VODPresentation
)

// StreamInfo is the loader's bookkeeping record for one rendition (spec
// §3, StreamInfo).
type StreamInfo struct {
	URIs         []string
	RedirectURIs []string

	PresentationType PresentationType
	MinTimestamp     float64
	MaxTimestamp     float64

	MediaSequenceToStartTime map[uint64]float64
	CanSkipSegments          bool
	CanBlockReload           bool
	HasEndList               bool
	FirstSequenceNumber      uint64
	NextMediaSequence        uint64
	NextPart                 int

	// SkippedSegments is the EXT-X-SKIP:SKIPPED-SEGMENTS count on a delta
	// update response: the number of leading segments, counted from
	// FirstSequenceNumber, the server elided because the client already
	// has them (spec §4.J step 1, §8 scenario 5).
	SkippedSegments int

	TargetDuration     float64
	PartTargetDuration float64
	HoldBack           float64
	PartHoldBack       float64

	Index    *segment.Index
	DrmInfos []*drm.Info
	MimeType string
}

// Options configures one Load call.
type Options struct {
	ContentKind     ContentKind
	LowLatency      bool
	MasterScope     *m3u8.VariableScope
	InitCache       *segment.Cache
	DisableProbing  bool
	ProbeInitSegKID drm.InitSegmentProbe
}

// Load fetches and parses the media playlist at uris[0] (with any
// redirect recorded), producing a StreamInfo. Steps follow spec §4.F.
func Load(ctx context.Context, req fetch.Requester, uris []string, opts Options) (*StreamInfo, error) {
	if len(uris) == 0 {
		return nil, hlserrors.New(hlserrors.RequiredAttributeMissing, "no media playlist URI provided")
	}

	resp, err := req.Request(ctx, fetch.Manifest, &fetch.Request{
		URIs:   uris,
		Method: fetch.MethodGET,
		Type:   fetch.MediaPlaylist,
	})
	if err != nil {
		return nil, hlserrors.Wrap(hlserrors.RequiredTagMissing, err, "fetching media playlist")
	}

	info := &StreamInfo{
		URIs:                     uris,
		MediaSequenceToStartTime: make(map[uint64]float64),
		Index:                    segment.NewIndex(),
	}
	if resp.RedirectURI != "" {
		info.RedirectURIs = append(info.RedirectURIs, resp.RedirectURI)
	}

	raw, err := m3u8.Lex(strings.NewReader(string(resp.Data)))
	if err != nil {
		return nil, err
	}
	if raw.Type != m3u8.Media {
		return nil, hlserrors.New(hlserrors.InvalidPlaylistHierarchy, "expected a media playlist, got %s", raw.Type)
	}

	scope := m3u8.BuildVariableScope(raw.Tags, resp.URI, opts.MasterScope)
	p := m3u8.ResolvePlaylist(raw, scope)

	if len(p.Segments) == 0 {
		return nil, hlserrors.New(hlserrors.EmptyMediaPlaylist, "media playlist has no segments")
	}

	if err := populatePresentationType(p, info); err != nil {
		return nil, err
	}
	populateServerControl(p, info)

	if seq := p.Tag("EXT-X-MEDIA-SEQUENCE"); seq != nil {
		n, _ := strconv.ParseUint(strings.TrimSpace(seq.Value), 10, 64)
		info.FirstSequenceNumber = n
	}
	if skip := p.Tag("EXT-X-SKIP"); skip != nil && skip.Attrs != nil {
		if n, ok := skip.Attrs.Int("SKIPPED-SEGMENTS"); ok {
			info.SkippedSegments = int(n)
		}
	}

	if err := walkSegments(ctx, req, p, info, opts); err != nil {
		return nil, err
	}

	if e := info.Index.Earliest(); e != nil {
		info.MinTimestamp = e.StartTime
	}
	if l := info.Index.Last(); l != nil {
		info.MaxTimestamp = l.EndTime
	}
	info.NextMediaSequence = info.FirstSequenceNumber + uint64(info.SkippedSegments) + uint64(info.Index.Len())

	if mt, ok := GuessMimeType(p.Segments[0].URI, opts.ContentKind); ok {
		info.MimeType = mt
	} else {
		return nil, hlserrors.New(hlserrors.CouldNotGuessMimeType, "could not infer MIME type from %q", p.Segments[0].URI)
	}

	return info, nil
}

func populatePresentationType(p *m3u8.Playlist, info *StreamInfo) error {
	info.HasEndList = p.Tag("EXT-X-ENDLIST") != nil
	if info.HasEndList {
		info.PresentationType = VODPresentation
		return nil
	}
	if t := p.Tag("EXT-X-PLAYLIST-TYPE"); t != nil {
		switch strings.TrimSpace(t.Value) {
		case "VOD":
			info.PresentationType = VODPresentation
		case "EVENT":
			info.PresentationType = EventPresentation
		}
		return nil
	}
	info.PresentationType = LivePresentation
	return nil
}

func populateServerControl(p *m3u8.Playlist, info *StreamInfo) {
	if t := p.Tag("EXT-X-TARGETDURATION"); t != nil {
		info.TargetDuration, _ = strconv.ParseFloat(strings.TrimSpace(t.Value), 64)
	}
	if t := p.Tag("EXT-X-PART-INF"); t != nil && t.Attrs != nil {
		info.PartTargetDuration, _ = t.Attrs.Float("PART-TARGET")
	}
	sc := p.Tag("EXT-X-SERVER-CONTROL")
	if sc == nil || sc.Attrs == nil {
		return
	}
	info.CanSkipSegments = sc.Attrs.Has("CAN-SKIP-UNTIL")
	info.CanBlockReload = sc.Attrs.YesNo("CAN-BLOCK-RELOAD")
	info.HoldBack, _ = sc.Attrs.Float("HOLD-BACK")
	info.PartHoldBack, _ = sc.Attrs.Float("PART-HOLD-BACK")
}

// walkSegments runs the segment factory and DRM dispatcher across every
// segment in source order, threading discontinuity sequence, the current
// init-segment reference, and the current AES key forward (spec §4.F
// step 6).
func walkSegments(ctx context.Context, req fetch.Requester, p *m3u8.Playlist, info *StreamInfo, opts Options) error {
	var (
		prevRef       *segment.SegmentReference
		defaultInit   *segment.InitSegmentReference
		currentAESKey *segment.AESKey
		discSeq       int
		seqNum        = info.FirstSequenceNumber + uint64(info.SkippedSegments)
	)

	for _, seg := range p.Segments {
		for _, keyTag := range seg.TagsNamed("EXT-X-KEY") {
			aesOrInfo, derr := dispatchKey(ctx, req, keyTag, defaultInit, opts.ProbeInitSegKID, seqNum)
			if derr != nil {
				if herr, ok := derr.(*hlserrors.Error); ok && herr.Severity == hlserrors.Recoverable {
					// An unsupported KEYFORMAT coexisting with a usable
					// identity/AES key on the same segment: skip this tag
					// rather than aborting the whole load.
					continue
				}
				return derr
			}
			if aesOrInfo.aes != nil {
				currentAESKey = aesOrInfo.aes
			} else if aesOrInfo.info != nil {
				info.DrmInfos = append(info.DrmInfos, aesOrInfo.info)
			} else {
				currentAESKey = nil // METHOD=NONE clears it
			}
		}

		res, err := segment.Build(seg, &segment.BuildContext{
			Previous:              prevRef,
			DefaultInitRef:        defaultInit,
			AESKey:                currentAESKey,
			DiscontinuitySequence: discSeq,
			MediaSequenceNumber:   seqNum,
			LowLatency:            opts.LowLatency,
			StartTimeHint:         info.MediaSequenceToStartTime[seqNum],
		}, opts.InitCache)
		if err != nil {
			return err
		}
		if res.Discontinuity {
			discSeq = res.DiscontinuitySequence
		}
		if res.Skipped {
			continue
		}

		if res.Ref.InitSegmentRef != nil {
			defaultInit = res.Ref.InitSegmentRef
		}
		info.Index.Append(res.Ref)
		info.MediaSequenceToStartTime[seqNum] = res.Ref.StartTime
		prevRef = res.Ref
		seqNum++
	}
	return nil
}

type keyResult struct {
	aes  *segment.AESKey
	info *drm.Info
}

func dispatchKey(ctx context.Context, req fetch.Requester, tag *m3u8.Tag, initRef *segment.InitSegmentReference, probe drm.InitSegmentProbe, seqNum uint64) (keyResult, error) {
	if tag.Attrs == nil {
		return keyResult{}, hlserrors.New(hlserrors.RequiredAttributeMissing, "EXT-X-KEY missing attribute list")
	}
	method := tag.Attrs.String("METHOD")
	switch method {
	case "AES-128", "AES-256", "AES-256-CTR":
		keyURI := tag.Attrs.String("URI")
		key, err := drm.BuildAESKey(tag, seqNum, func() ([]byte, error) {
			resp, ferr := req.Request(ctx, fetch.Key, &fetch.Request{URIs: []string{keyURI}, Method: fetch.MethodGET})
			if ferr != nil {
				return nil, ferr
			}
			return resp.Data, nil
		})
		if err != nil {
			return keyResult{}, err
		}
		return keyResult{aes: key}, nil
	case "NONE":
		return keyResult{}, nil
	default:
		info, err := drm.Dispatch(tag, initRef, probe)
		if err != nil {
			if herr, ok := err.(*hlserrors.Error); ok {
				return keyResult{}, hlserrors.AsRecoverable(herr)
			}
			return keyResult{}, err
		}
		return keyResult{info: info}, nil
	}
}
