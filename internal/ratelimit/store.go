// Package ratelimit gates proxied traffic before it reaches the metrics
// middleware. Two backends are available: a local token-bucket limiter
// (the default, backed by golang.org/x/time/rate) and a counter Store
// interface for sidecars that need to share one limit across instances
// (backed by Redis), mirroring the Store abstraction used elsewhere in
// the example pack for the same purpose.
package ratelimit

import (
	"context"
	"time"
)

// Store defines a counter-based rate limit backend. Implementations must
// be safe for concurrent use.
type Store interface {
	// Increment increments the counter for key and returns the new count
	// and the TTL remaining until the window resets.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// Close releases any resources held by the store.
	Close() error
}
