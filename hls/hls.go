// Package hls is the top-level orchestration layer: it drives the
// master-playlist builder for the initial parse, wires the stream
// synchronizer and presentation timeline, and owns the update scheduler
// for live content (spec §5, §6).
package hls

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mogiioin/hls-manifest/fetch"
	"github.com/mogiioin/hls-manifest/hlserrors"
	"github.com/mogiioin/hls-manifest/manifest"
	"github.com/mogiioin/hls-manifest/segment"
	"github.com/mogiioin/hls-manifest/streamsync"
	"github.com/mogiioin/hls-manifest/update"
)

// Config bundles everything a Parser needs from its embedder.
type Config struct {
	Requester                 fetch.Requester
	Callbacks                 fetch.PlayerCallbacks
	LowLatency                bool
	UpdatePeriod              time.Duration // default update tick, before EWMA pacing
	RaiseFatalOnUpdateFailure bool
}

// Parser is the root object: it owns one Manifest, the presentation
// timeline, the stream synchronizer, and (for live content) the update
// scheduler.
type Parser struct {
	cfg Config

	mu        sync.Mutex
	manifest  *manifest.Manifest
	scheduler *update.Scheduler
	stopped   bool
	cancel    context.CancelFunc
}

// New creates a Parser. Call Start to run the initial parse.
func New(cfg Config) *Parser {
	if cfg.UpdatePeriod <= 0 {
		cfg.UpdatePeriod = 6 * time.Second
	}
	return &Parser{cfg: cfg}
}

// Start fetches and parses masterURI, finalizes the presentation
// timeline and stream synchronization, and — for non-static content —
// starts the update scheduler. Structural/DRM errors during this initial
// parse are fatal (spec §7): Start returns them directly rather than
// routing through Callbacks.OnError.
func (p *Parser) Start(ctx context.Context, masterURI string) error {
	resp, err := p.cfg.Requester.Request(ctx, fetch.Manifest, &fetch.Request{
		URIs:   []string{masterURI},
		Method: fetch.MethodGET,
		Type:   fetch.MasterPlaylist,
	})
	if err != nil {
		return hlserrors.Wrap(hlserrors.RequiredTagMissing, err, "fetching master playlist")
	}

	mf, err := manifest.Build(ctx, p.cfg.Requester, resp.URI, string(resp.Data), manifest.Options{
		LowLatency: p.cfg.LowLatency,
		InitCache:  segment.NewCache(),
	})
	if err != nil {
		return err
	}

	if err := p.finalizeStreams(ctx, mf); err != nil {
		return err
	}
	p.emitSessionDataEvents(mf)

	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.manifest = mf
	p.cancel = cancel
	p.mu.Unlock()

	if !mf.PresentationTimeline.Static {
		p.startScheduler(runCtx, mf)
	}
	return nil
}

// finalizeStreams is the single-writer barrier from spec §5: it loads
// every variant's primary streams, runs the cross-stream synchronizer,
// and locks the timeline's start time exactly once.
func (p *Parser) finalizeStreams(ctx context.Context, mf *manifest.Manifest) error {
	var streams []*streamsync.Stream
	var rawStreams []*manifest.Stream

	visit := func(s *manifest.Stream) error {
		if s == nil {
			return nil
		}
		idx, err := s.CreateSegmentIndex(ctx)
		if err != nil {
			return err
		}
		var firstSeq uint64
		if info := s.LoaderInfo(); info != nil {
			firstSeq = info.FirstSequenceNumber
		}
		streams = append(streams, &streamsync.Stream{Index: idx, FirstSequenceNumber: firstSeq})
		rawStreams = append(rawStreams, s)
		return nil
	}

	for _, v := range mf.Variants {
		if err := visit(v.Video); err != nil {
			return err
		}
		if err := visit(v.Audio); err != nil {
			return err
		}
	}

	sync := streamsync.New()
	sync.Sync(streams)

	var startTime float64
	if len(streams) > 0 && streams[0].Index.Len() > 0 {
		startTime = streams[0].Index.Earliest().StartTime
	}
	mf.PresentationTimeline.LockStartTime(startTime)

	hasEndList := true
	var maxTimestamps []float64
	for _, s := range rawStreams {
		info := s.LoaderInfo()
		if info == nil || !info.HasEndList {
			hasEndList = false
		}
		if idx := s.SegmentIndex(); idx != nil && idx.Len() > 0 {
			maxTimestamps = append(maxTimestamps, idx.Last().EndTime)
		}
	}
	if hasEndList && len(rawStreams) > 0 {
		mf.PresentationTimeline.SetVOD(maxTimestamps)
	} else {
		mf.PresentationTimeline.SetLive(mf.PresentationTimeline.SegmentAvailabilityDuration, mf.PresentationTimeline.Delay)
	}
	return nil
}

// emitSessionDataEvents dispatches one OnEvent call, with the event string
// "sessiondata:<DATA-ID>:<LANGUAGE>", per EXT-X-SESSION-DATA tag found on
// the master playlist.
func (p *Parser) emitSessionDataEvents(mf *manifest.Manifest) {
	for _, sd := range mf.SessionData {
		p.cfg.Callbacks.OnEvent(fmt.Sprintf("sessiondata:%s:%s", sd.DataID, sd.Language))
	}
}

func (p *Parser) startScheduler(ctx context.Context, mf *manifest.Manifest) {
	policy := update.Recoverable
	if p.cfg.RaiseFatalOnUpdateFailure {
		policy = update.Strict
	}
	sched := update.New(p.cfg.Callbacks, mf.PresentationTimeline, p.cfg.UpdatePeriod, policy)
	sched.Start(ctx, activeStreamsOf(mf))
	p.mu.Lock()
	p.scheduler = sched
	p.mu.Unlock()
}

// activeStreamsOf flattens every variant's audio/video streams plus the
// text streams into the scheduler's active set.
func activeStreamsOf(mf *manifest.Manifest) []*manifest.Stream {
	var out []*manifest.Stream
	seen := make(map[*manifest.Stream]bool)
	add := func(s *manifest.Stream) {
		if s == nil || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, v := range mf.Variants {
		add(v.Video)
		add(v.Audio)
	}
	for _, s := range mf.TextStreams {
		add(s)
	}
	return out
}

// Manifest returns the parsed manifest, or nil before Start completes.
func (p *Parser) Manifest() *manifest.Manifest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.manifest
}

// Stop halts the update scheduler, cancels in-flight work, and releases
// every stream's segment index (spec §5, stop()).
func (p *Parser) Stop() {
	p.mu.Lock()
	p.stopped = true
	sched := p.scheduler
	cancel := p.cancel
	mf := p.manifest
	p.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
	if cancel != nil {
		cancel()
	}
	if mf == nil {
		return
	}
	for _, v := range mf.Variants {
		if v.Video != nil {
			v.Video.CloseSegmentIndex()
		}
		if v.Audio != nil {
			v.Audio.CloseSegmentIndex()
		}
	}
	for _, s := range mf.TextStreams {
		s.CloseSegmentIndex()
	}
}
