package adapter

import (
	"context"
	"sync"
)

// Stub is an in-memory Connection for tests and simulations.
// It records every request and invokes the callback synchronously.
type Stub struct {
	mu       sync.Mutex
	requests []*Request

	// Result scripts the outcome of each Send. Nil means success with an
	// empty response.
	Result func(req *Request) ([]byte, error)

	// Defer holds callbacks instead of invoking them, until Complete.
	Defer   bool
	pending []func()
	closed  bool
}

// Send implements Connection.
func (s *Stub) Send(_ context.Context, req *Request, cb Callback) {
	s.mu.Lock()
	s.requests = append(s.requests, cloneRequest(req))
	result := s.Result
	deferred := s.Defer
	s.mu.Unlock()

	var resp []byte
	var err error
	if result != nil {
		resp, err = result(req)
	}
	if deferred {
		s.mu.Lock()
		s.pending = append(s.pending, func() { cb(resp, err) })
		s.mu.Unlock()
		return
	}
	cb(resp, err)
}

// Complete invokes every deferred callback in send order.
func (s *Stub) Complete() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

// Requests returns the recorded requests.
func (s *Stub) Requests() []*Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Reset forgets recorded requests.
func (s *Stub) Reset() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

// Closed reports whether Close was called.
func (s *Stub) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close implements Connection.
func (s *Stub) Close() error {
	s.Complete()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func cloneRequest(req *Request) *Request {
	c := *req
	c.Payload = append([]byte(nil), req.Payload...)
	return &c
}

// Verify Stub implements Connection.
var _ Connection = (*Stub)(nil)
