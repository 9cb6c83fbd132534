// Package iox provides close helpers for connections and response bodies.
package iox

import "io"

// maxDrain bounds how much of an unread body DrainClose discards.
const maxDrain = 64 << 10

// DiscardClose closes c and discards the error.
//
//	defer iox.DiscardClose(conn)
func DiscardClose(c io.Closer) { _ = c.Close() }

// DrainClose discards up to 64 KiB of unread data from rc, then closes it.
// HTTP keep-alive connections are only reused once the body is consumed.
//
//	defer iox.DrainClose(resp.Body)
func DrainClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, maxDrain))
	_ = rc.Close()
}

// CloseFunc returns a cleanup function that closes c, for t.Cleanup.
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}
