package update

import (
	"sync"
	"time"

	cron "github.com/robfig/cron/v3"
)

// dynamicSchedule is a cron.Schedule whose period is retimed after every
// firing, so the update tick's cadence tracks the EWMA-paced delay
// between reloads instead of a fixed interval. cron.Cron calls Next once
// per entry per loop iteration, so retiming between calls is enough to
// make the period track without restarting the underlying cron.Cron.
type dynamicSchedule struct {
	mu   sync.Mutex
	next time.Duration
}

func newDynamicSchedule(initial time.Duration) *dynamicSchedule {
	return &dynamicSchedule{next: initial}
}

// retime sets the delay before the next tick.
func (d *dynamicSchedule) retime(next time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if next < 0 {
		next = 0
	}
	d.next = next
}

// Next implements cron.Schedule.
func (d *dynamicSchedule) Next(t time.Time) time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.next <= 0 {
		d.next = time.Millisecond
	}
	return t.Add(d.next)
}

var _ cron.Schedule = (*dynamicSchedule)(nil)
