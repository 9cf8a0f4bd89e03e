// Package timeline implements the presentation timeline (component I):
// liveness, duration, availability window, start time, and update delay.
package timeline

import "math"

// Kind is whether a presentation is still being produced.
type Kind int

const (
	Live Kind = iota
	Event
	VOD
)

// Timeline holds the bookkeeping shared by every stream in a manifest.
type Timeline struct {
	Kind Kind

	PresentationStartTime       float64
	SegmentAvailabilityStart    float64
	SegmentAvailabilityDuration float64
	Duration                    float64
	Delay                       float64
	Static                      bool
	InitialProgramDateTime      *float64

	locked bool
}

// New creates a Timeline of the given kind.
func New(kind Kind) *Timeline {
	return &Timeline{Kind: kind, Static: kind == VOD}
}

// DefaultDelayFromHoldBack returns holdBack if positive, else
// partHoldBack if positive, else 3×maxTargetDuration, matching the
// fallback ladder in spec §4.I.
func DefaultDelayFromHoldBack(holdBack, partHoldBack, maxTargetDuration float64) float64 {
	if holdBack > 0 {
		return holdBack
	}
	if partHoldBack > 0 {
		return partHoldBack
	}
	return 3 * maxTargetDuration
}

// SetLive configures the timeline for a LIVE presentation: start time is
// always 0, availability duration is the live window (or an override),
// and delay is stored as given (DefaultDelayFromHoldBack computes the
// hold-back ladder; SetLive does not call it).
func (t *Timeline) SetLive(availabilityDuration, delay float64) {
	t.Kind = Live
	t.Static = false
	t.PresentationStartTime = 0
	t.SegmentAvailabilityDuration = availabilityDuration
	t.Delay = delay
}

// SetVOD configures the timeline for a VOD presentation: duration is the
// minimum of every active non-text stream's max timestamp.
func (t *Timeline) SetVOD(streamMaxTimestamps []float64) {
	t.Kind = VOD
	t.Static = true
	t.Duration = minOf(streamMaxTimestamps)
}

// PromoteToVOD converts a LIVE/EVENT timeline to VOD once every active
// stream has observed EXT-X-ENDLIST (spec §4.J step 5).
func (t *Timeline) PromoteToVOD(streamMaxTimestamps []float64) {
	t.SetVOD(streamMaxTimestamps)
}

// LockStartTime is the single-writer barrier: the first call before any
// segment index is exposed locks PresentationStartTime; subsequent calls
// are rejected (spec §5, "no component may call lockStartTime() twice").
func (t *Timeline) LockStartTime(startTime float64) bool {
	if t.locked {
		return false
	}
	t.PresentationStartTime = startTime
	t.locked = true
	return true
}

// Locked reports whether LockStartTime has already succeeded once.
func (t *Timeline) Locked() bool { return t.locked }

func minOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := math.Inf(1)
	for _, v := range vals {
		if v < m {
			m = v
		}
	}
	return m
}
