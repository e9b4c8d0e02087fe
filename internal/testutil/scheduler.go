// Package testutil holds deterministic helpers shared by package tests.
package testutil

import (
	"sort"
	"sync"
	"time"

	"whatsapp-flow-editor/internal/debounce"
)

// ManualScheduler is a debounce.Scheduler driven by Advance instead of the
// wall clock.
//
// Thread-safety: all methods are safe for concurrent use. Due callbacks run
// on the goroutine calling Advance, outside the internal lock.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	timers map[int]*manualTimer
}

type manualTimer struct {
	s  *ManualScheduler
	id int
	at time.Duration
	fn func()
}

// NewManual returns a scheduler at logical time zero.
func NewManual() *ManualScheduler {
	return &ManualScheduler{timers: map[int]*manualTimer{}}
}

// AfterFunc registers f to run once Advance passes now+d.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) debounce.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := &manualTimer{s: s, id: s.nextID, at: s.now + d, fn: f}
	s.timers[t.id] = t
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.timers[t.id]; !ok {
		return false
	}
	delete(t.s.timers, t.id)
	return true
}

// Advance moves logical time forward by d and runs every timer that falls
// due, in deadline order. Timers scheduled by a callback run in the same
// call when they fall within the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var due []*manualTimer
		for _, t := range s.timers {
			if t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.now = target
			s.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at != due[j].at {
				return due[i].at < due[j].at
			}
			return due[i].id < due[j].id
		})
		next := due[0]
		delete(s.timers, next.id)
		s.now = next.at
		s.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of scheduled timers.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Now returns the logical time elapsed since creation.
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}
