package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced clock for tests.
// Scheduled callbacks fire synchronously inside Advance, in due-time order.
// Callbacks scheduled at the same instant fire in scheduling order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    int64
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *Fake
	due      time.Time
	seq      int64
	fn       func()
	canceled bool
	fired    bool
}

// NewFake creates a fake clock positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now implements Clock.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Schedule implements Clock.
func (f *Fake) Schedule(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	t := &fakeTimer{clock: f, due: f.now.Add(d), seq: f.seq, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// Manual reports whether c fires callbacks only from Advance, on
// the goroutine that calls them.
func Manual(c Clock) bool {
	_, ok := c.(*Fake)
	return ok
}

// Advance moves the clock forward by d, firing every timer that becomes due.
// Timers scheduled by a firing callback also fire if they fall due within
// the advanced window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		t := f.nextDue(target)
		if t == nil {
			break
		}
		f.mu.Lock()
		f.now = t.due
		t.fired = true
		f.mu.Unlock()
		t.fn()
	}

	f.mu.Lock()
	f.now = target
	f.mu.Unlock()
}

// Set moves the clock to an absolute time without firing timers.
// Useful to position a test before scheduling anything.
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// Pending returns the number of scheduled, unfired, uncanceled timers.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, t := range f.timers {
		if !t.canceled && !t.fired {
			n++
		}
	}
	return n
}

// nextDue pops the earliest live timer due at or before target.
func (f *Fake) nextDue(target time.Time) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	live := f.timers[:0]
	for _, t := range f.timers {
		if !t.canceled && !t.fired {
			live = append(live, t)
		}
	}
	f.timers = live
	if len(f.timers) == 0 {
		return nil
	}

	sort.SliceStable(f.timers, func(i, j int) bool {
		if f.timers[i].due.Equal(f.timers[j].due) {
			return f.timers[i].seq < f.timers[j].seq
		}
		return f.timers[i].due.Before(f.timers[j].due)
	})

	first := f.timers[0]
	if first.due.After(target) {
		return nil
	}
	return first
}

func (t *fakeTimer) Cancel() {
	t.clock.mu.Lock()
	t.canceled = true
	t.clock.mu.Unlock()
}

// Verify Fake implements Clock.
var _ Clock = (*Fake)(nil)
