package parameter

import (
	"sync"
	"time"
)

// DefaultValidationDelay is the quiet period before a scheduled validation
const DefaultValidationDelay = 500 * time.Millisecond

// Timer is a pending scheduled call
type Timer interface {
	Stop() bool
}

// TimerFunc schedules f after d. time.AfterFunc is the default; tests
// inject a manual clock.
type TimerFunc func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// debouncer runs fn once the calls to Trigger have been quiet for delay.
// At most one timer is pending; every Trigger replaces it.
type debouncer struct {
	delay    time.Duration
	newTimer TimerFunc
	fn       func()

	mu    sync.Mutex
	timer Timer
	gen   uint64
}

func newDebouncer(delay time.Duration, newTimer TimerFunc, fn func()) *debouncer {
	if newTimer == nil {
		newTimer = afterFunc
	}
	return &debouncer{delay: delay, newTimer: newTimer, fn: fn}
}

// Trigger (re)starts the quiet period
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.newTimer(d.delay, func() { d.fire(gen) })
}

// fire runs fn unless a newer Trigger or Cancel superseded this timer
func (d *debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}

// Cancel drops the pending call, if any
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Pending reports whether a call is scheduled
func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
