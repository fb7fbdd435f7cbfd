// Package metrics implements the per-stream HTTP metrics middleware: a
// RoundTripper layer that classifies every proxied request/response,
// measures time-to-first-response-byte, and aggregates counts into a
// registry keyed by an opaque target.
package metrics

import "sync/atomic"

// Counter is a monotonic, incr-only counter. The zero value is ready to
// use. Reads are non-destructive and safe for concurrent use.
type Counter struct {
	n atomic.Uint64
}

// Incr increments the counter by one, saturating at the platform word
// width instead of wrapping.
func (c *Counter) Incr() {
	for {
		old := c.n.Load()
		if old == ^uint64(0) {
			return
		}
		if c.n.CompareAndSwap(old, old+1) {
			return
		}
	}
}

// Value returns the current count.
func (c *Counter) Value() uint64 {
	return c.n.Load()
}
