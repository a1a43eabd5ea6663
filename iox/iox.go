// Package iox holds small cleanup helpers for closers whose errors nobody
// can act on: input files, journal handles, adapter clients and response
// bodies.
package iox

import "io"

// drainLimit caps how much of a response body DrainClose reads.
const drainLimit = 64 << 10

// DiscardClose closes c and drops the error.
//
//	defer iox.DiscardClose(in)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a func that closes c, for t.Cleanup:
//
//	t.Cleanup(iox.CloseFunc(adapter))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and drops its error (logger.Sync, writer Flush).
func DiscardErr(fn func() error) { _ = fn() }

// DrainClose reads what is left of rc, up to a limit, then closes it so an
// HTTP connection can be reused.
func DrainClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, drainLimit))
	_ = rc.Close()
}
