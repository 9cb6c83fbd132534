// Package clock abstracts wall-clock time and deferred callbacks so that
// timer-driven logic (flush coalescing, scroll visibility updates) can be
// driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time and single-shot deferred callbacks.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// Schedule runs fn once after d elapses.
	// The returned Timer can cancel the callback before it fires.
	Schedule(d time.Duration, fn func()) Timer
}

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Cancel prevents the callback from firing. Safe to call more than once,
	// and after the callback has already fired.
	Cancel()
}

// System is the real wall clock. Callbacks fire on a runtime timer
// goroutine; callers that need a single logical context must re-post them.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time {
	return time.Now()
}

// Schedule implements Clock using time.AfterFunc.
func (System) Schedule(d time.Duration, fn func()) Timer {
	return &systemTimer{t: time.AfterFunc(d, fn)}
}

type systemTimer struct {
	once sync.Once
	t    *time.Timer
}

func (s *systemTimer) Cancel() {
	s.once.Do(func() { s.t.Stop() })
}

// Verify System implements Clock.
var _ Clock = System{}
