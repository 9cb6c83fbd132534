package loop

import (
	"bytes"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned by Do once the loop has been stopped.
var ErrStopped = errors.New("loop stopped")

// Serial is a Loop backed by one dedicated goroutine. Posted work runs in
// post order on that goroutine, and InLoop is true only there.
type Serial struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake  chan struct{}
	done  chan struct{}
	owner atomic.Uint64
}

// NewSerial starts a serial loop. Stop releases its goroutine.
func NewSerial() *Serial {
	s := &Serial{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	ready := make(chan struct{})
	go s.run(ready)
	<-ready
	return s
}

func (s *Serial) run(ready chan<- struct{}) {
	defer close(s.done)
	s.owner.Store(goroutineID())
	close(ready)

	for {
		s.mu.Lock()
		work := s.queue
		s.queue = nil
		stopped := s.stopped
		s.mu.Unlock()

		for _, fn := range work {
			fn()
		}
		if len(work) > 0 {
			continue
		}
		// Work queued before Stop still runs.
		if stopped {
			return
		}
		<-s.wake
	}
}

// Post implements Loop. Work posted after Stop is dropped.
func (s *Serial) Post(fn func()) {
	s.post(fn)
}

func (s *Serial) post(fn func()) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, fn)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// InLoop implements Loop.
func (s *Serial) InLoop() bool {
	return goroutineID() == s.owner.Load()
}

// Do runs fn on the loop and waits for it to return. Called from the loop
// itself, fn runs inline. Work accepted before Stop always runs.
func (s *Serial) Do(fn func()) error {
	if s.InLoop() {
		fn()
		return nil
	}
	finished := make(chan struct{})
	if !s.post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	<-finished
	return nil
}

// Stop drains already-posted work and ends the loop goroutine. It waits
// for the goroutine to exit unless called from the loop itself. Safe to
// call more than once.
func (s *Serial) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	if !s.InLoop() {
		<-s.done
	}
}

// goroutineID parses the running goroutine's ID from its stack header,
// "goroutine 42 [running]:".
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// Verify Serial implements Loop.
var _ Loop = (*Serial)(nil)
