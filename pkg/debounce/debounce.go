// Package debounce coalesces rapid event bursts into a single
// callback invocation.
package debounce

import (
	"sync"
	"time"
)

// DefaultInterval is the default settle window.
const DefaultInterval = 300 * time.Millisecond

// Debouncer coalesces rapid triggers into a single callback. A new
// trigger within the interval supersedes the pending one; there is no
// cancellation of an already-running callback.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
}

// New creates a Debouncer. A zero interval uses DefaultInterval.
func New(interval time.Duration) *Debouncer {
	if interval == 0 {
		interval = DefaultInterval
	}
	return &Debouncer{interval: interval}
}

// Trigger schedules callback after the interval, replacing any
// pending schedule.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		// Stop() can miss a timer that already fired; the sequence
		// check keeps a stale callback from running.
		current := seq == d.seq
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			callback()
		}
	})
}

// Cancel drops any pending callback.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Interval returns the debounce interval.
func (d *Debouncer) Interval() time.Duration {
	return d.interval
}
