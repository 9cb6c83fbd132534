// Package adapter defines the network connection boundary.
//
// A Connection delivers one serialized batch and reports the outcome
// through a callback. Connections perform their own bounded retries; the
// logging core never retries or re-enqueues a failed batch.
package adapter

import "context"

// Request is one serialized batch.
type Request struct {
	Payload         []byte
	ContentType     string
	ContentEncoding string // empty when uncompressed
	BatchNumber     int
	MessageCount    int
}

// Callback receives the outcome of a Send. It may be invoked on any
// goroutine; callers re-deliver it onto their own execution context.
type Callback func(resp []byte, err error)

// Connection sends batches to the metrics backend.
type Connection interface {
	// Send delivers req and invokes cb exactly once with the result.
	// Must respect context cancellation and deadlines.
	Send(ctx context.Context, req *Request, cb Callback)

	// Close waits for in-flight sends and releases resources.
	Close() error
}
