package metrics

import "time"

// Clock is the monotonic time source the middleware reads from. All
// latency measurement and last-update bookkeeping go through it, so tests
// can freeze or advance time deterministically instead of racing the wall
// clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock backed by time.Now.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
