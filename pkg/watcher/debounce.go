package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is the default quiet period before a change fires.
// The backend writes the database and its JSON export back to back; one
// reload should cover both.
const DefaultDebounceDuration = 300 * time.Millisecond

// Debouncer coalesces bursts of triggers into a single callback after a
// quiet period.
type Debouncer struct {
	duration time.Duration
	mu       sync.Mutex
	timer    *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{duration: d}
}

// Trigger schedules fn to run after the quiet period. A trigger during the
// quiet period restarts the clock, so only the last fn of a burst runs.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel stops any pending callback.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Duration returns the configured quiet period.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}
