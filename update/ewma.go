package update

import (
	"sync"
	"time"
)

// EWMA is an exponentially weighted moving average over tick durations,
// windowed the way component J's latency auto-pacer is specified: a
// window of 5 ticks (spec §4.J step 6).
type EWMA struct {
	mu    sync.Mutex
	alpha float64
	value time.Duration
	set   bool
}

// NewEWMA returns an EWMA with smoothing equivalent to an n-sample
// window.
func NewEWMA(window int) *EWMA {
	if window < 1 {
		window = 1
	}
	return &EWMA{alpha: 2.0 / float64(window+1)}
}

// Sample records one observed duration.
func (e *EWMA) Sample(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		e.value = d
		e.set = true
		return
	}
	e.value = time.Duration(e.alpha*float64(d) + (1-e.alpha)*float64(e.value))
}

// Estimate returns the current average, or 0 before any sample.
func (e *EWMA) Estimate() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}
