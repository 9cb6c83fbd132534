// Package loop models the single logical execution context the logging core
// runs on (the host's UI thread equivalent).
//
// The core holds no internal locks. Every public entry point asserts InLoop,
// and deferred work (flush timers, network completions) is re-delivered
// through Post so it runs on the same context as everything else.
package loop

// Loop is the host-provided execution context.
type Loop interface {
	// Post delivers fn to run on the logical context.
	Post(fn func())

	// InLoop reports whether the caller is running on the logical context.
	InLoop() bool
}

// Immediate runs posted work inline and treats every caller as on-loop.
// Suitable for tests driven by clock.Fake and for hosts that already
// serialize all calls into the core.
type Immediate struct{}

// Post runs fn immediately.
func (Immediate) Post(fn func()) { fn() }

// InLoop always returns true.
func (Immediate) InLoop() bool { return true }

// Func adapts host callbacks (for example a mobile bridge's main-thread
// dispatcher) to Loop. Nil fields fall back to Immediate behavior.
type Func struct {
	PostFunc   func(fn func())
	InLoopFunc func() bool
}

// Post implements Loop.
func (f Func) Post(fn func()) {
	if f.PostFunc == nil {
		fn()
		return
	}
	f.PostFunc(fn)
}

// InLoop implements Loop.
func (f Func) InLoop() bool {
	if f.InLoopFunc == nil {
		return true
	}
	return f.InLoopFunc()
}

// Verify implementations.
var (
	_ Loop = Immediate{}
	_ Loop = Func{}
)
