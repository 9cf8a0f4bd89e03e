// Package update implements the live update scheduler (component J): a
// recurring timer tick that re-fetches each active stream's media
// playlist via a blocking-reload/delta-update query, merges fresh
// references into the stream's SegmentIndex, and demotes the
// presentation to VOD once every active stream has ended.
package update

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	cron "github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/mogiioin/hls-manifest/fetch"
	"github.com/mogiioin/hls-manifest/hlserrors"
	"github.com/mogiioin/hls-manifest/loader"
	"github.com/mogiioin/hls-manifest/manifest"
	"github.com/mogiioin/hls-manifest/timeline"
)

// ErrorPolicy governs whether update failures are demoted to
// recoverable (the default) or escalated to fatal (spec §4.J,
// "raiseFatalErrorOnManifestUpdateRequestFailure").
type ErrorPolicy int

const (
	Recoverable ErrorPolicy = iota
	Strict
)

const retryDelay = 100 * time.Millisecond

// Scheduler drives one manifest's active streams on a single recurring
// tick, EWMA-paced (spec §4.J, §5).
type Scheduler struct {
	callbacks fetch.PlayerCallbacks
	timeline  *timeline.Timeline
	period    time.Duration
	policy    ErrorPolicy

	ewma     *EWMA
	schedule *dynamicSchedule
	cronner  *cron.Cron

	mu      sync.Mutex
	streams []*manifest.Stream
	paused  bool
	stopped bool
	cancel  context.CancelFunc
}

// New creates a Scheduler that will, once Start is called, tick every
// period (subject to EWMA retiming).
func New(callbacks fetch.PlayerCallbacks, tl *timeline.Timeline, period time.Duration, policy ErrorPolicy) *Scheduler {
	return &Scheduler{
		callbacks: callbacks,
		timeline:  tl,
		period:    period,
		policy:    policy,
		ewma:      NewEWMA(5),
		schedule:  newDynamicSchedule(period),
	}
}

// Start registers streams as the active set and begins ticking.
func (s *Scheduler) Start(ctx context.Context, streams []*manifest.Stream) {
	s.mu.Lock()
	s.streams = streams
	tickCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.cronner = cron.New()
	s.cronner.Schedule(s.schedule, cron.FuncJob(func() { s.tick(tickCtx) }))
	s.cronner.Start()
}

// Pause defers subsequent ticks until Resume is called (spec §4.J step
// 7, "continueLoadingWhenPaused=false").
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume re-enables ticking.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// Stop halts the timer and aborts any in-flight tick (spec §5,
// "stop() halts the update timer, aborts all pending requests").
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()
	if s.cronner != nil {
		ctx := s.cronner.Stop()
		<-ctx.Done()
	}
	if cancel != nil {
		cancel()
	}
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Scheduler) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Scheduler) activeStreams() []*manifest.Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*manifest.Stream, len(s.streams))
	copy(out, s.streams)
	return out
}

// tick runs one round of component J's steps 1-8. It is called by the
// cron schedule and reschedules itself by retiming s.schedule before
// returning.
func (s *Scheduler) tick(ctx context.Context) {
	if s.isStopped() || s.isPaused() {
		return
	}
	started := time.Now()

	streams := s.activeStreams()
	g, gctx := errgroup.WithContext(ctx)
	for _, st := range streams {
		st := st
		g.Go(func() error {
			return s.tickStream(gctx, st)
		})
	}
	err := g.Wait()

	s.ewma.Sample(time.Since(started))
	s.schedule.retime(s.nextDelay())

	if s.isStopped() {
		return
	}
	if err != nil {
		s.handleTickError(err)
		s.schedule.retime(retryDelay)
		return
	}

	if allEnded(streams) {
		s.timeline.PromoteToVOD(maxTimestamps(streams))
	}
	s.callbacks.OnManifestUpdated()
}

// tickStream re-fetches one stream's media playlist with a blocking-
// reload/delta-update query appended, per spec §4.J steps 1-4.
func (s *Scheduler) tickStream(ctx context.Context, st *manifest.Stream) error {
	uris := st.URIs()
	if len(uris) == 0 {
		return nil // e.g. a muxed-audio pseudo-stream never refetches
	}
	info := st.LoaderInfo()
	if info != nil && info.HasEndList {
		return nil // already VOD, nothing left to fetch
	}

	uri := uris[0]
	if info != nil {
		reloadURI, err := buildReloadURI(uri, info)
		if err != nil {
			return err
		}
		uri = reloadURI
	}

	availabilityStart := s.timeline.SegmentAvailabilityStart
	if err := st.Reload(ctx, uri, availabilityStart); err != nil {
		s.callbacks.DisableStream(st.ID)
		return err
	}

	if fresh := st.LoaderInfo(); fresh != nil && fresh.Index.Len() == 0 {
		s.callbacks.DisableStream(st.ID)
	}
	return nil
}

// buildReloadURI appends _HLS_msn/_HLS_part/_HLS_skip per spec §4.J
// step 1 / §6.
func buildReloadURI(base string, info *loader.StreamInfo) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if info.CanBlockReload {
		q.Set("_HLS_msn", strconv.FormatUint(info.NextMediaSequence, 10))
		if info.NextPart > 0 {
			q.Set("_HLS_part", strconv.Itoa(info.NextPart))
		}
	}
	if info.CanSkipSegments {
		q.Set("_HLS_skip", "YES")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Scheduler) nextDelay() time.Duration {
	avg := s.ewma.Estimate()
	d := s.period - avg
	if d < 0 {
		d = 0
	}
	return d
}

func (s *Scheduler) handleTickError(err error) {
	if s.policy == Strict {
		s.callbacks.OnError(err)
		return
	}
	if herr, ok := err.(*hlserrors.Error); ok {
		err = hlserrors.AsRecoverable(herr)
	}
	s.callbacks.OnError(err)
}

// maxTimestamps collects each stream's highest EndTime, for
// Timeline.PromoteToVOD's min-of-max-timestamps computation.
func maxTimestamps(streams []*manifest.Stream) []float64 {
	out := make([]float64, 0, len(streams))
	for _, st := range streams {
		idx := st.SegmentIndex()
		if idx == nil || idx.Len() == 0 {
			continue
		}
		out = append(out, idx.Last().EndTime)
	}
	return out
}

func allEnded(streams []*manifest.Stream) bool {
	if len(streams) == 0 {
		return false
	}
	for _, st := range streams {
		info := st.LoaderInfo()
		if info == nil || !info.HasEndList {
			return false
		}
	}
	return true
}
