// Package debounce collapses bursts of triggers into a single deferred call.
package debounce

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	// Stop cancels the call and reports whether it was still pending.
	Stop() bool
}

// Scheduler runs f once after d. Tests substitute a manual scheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler schedules on the runtime timer.
var RealScheduler Scheduler = realScheduler{}

// Debouncer runs only the last fn handed to Trigger, wait after the last
// trigger. It is safe for concurrent use.
type Debouncer struct {
	wait  time.Duration
	sched Scheduler

	mu    sync.Mutex
	seq   uint64
	timer Timer
	fn    func()
}

// New returns a debouncer. A nil sched uses RealScheduler.
func New(wait time.Duration, sched Scheduler) *Debouncer {
	if sched == nil {
		sched = RealScheduler
	}
	return &Debouncer{wait: wait, sched: sched}
}

// Wait returns the quiet period.
func (d *Debouncer) Wait() time.Duration {
	return d.wait
}

// Trigger replaces any pending call with fn and restarts the quiet period.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.fn = fn
	d.timer = d.sched.AfterFunc(d.wait, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || d.fn == nil {
		// superseded by a later Trigger, Cancel or Flush
		d.mu.Unlock()
		return
	}
	fn := d.take()
	d.mu.Unlock()
	fn()
}

// take clears the pending state. Caller holds mu.
func (d *Debouncer) take() func() {
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.seq++
	return fn
}

// Flush runs the pending call now, if any, and reports whether one ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.fn == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	fn := d.take()
	d.mu.Unlock()
	fn()
	return true
}

// Cancel drops the pending call and reports whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fn == nil {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.take()
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}
