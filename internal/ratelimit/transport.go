package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rejectedResponse builds the synthetic 429 returned in place of forwarding
// a request once a limit is exceeded — the same contract http.RoundTripper
// callers already expect from a transport-level failure, just with a
// successful (nil-error) response instead of an error, since the request
// was understood and explicitly refused rather than failing to send.
func rejectedResponse(req *http.Request, retryAfter time.Duration) *http.Response {
	header := http.Header{}
	if retryAfter > 0 {
		header.Set("Retry-After", formatSeconds(retryAfter))
	}
	return &http.Response{
		Status:     "429 Too Many Requests",
		StatusCode: http.StatusTooManyRequests,
		Proto:      req.Proto,
		ProtoMajor: req.ProtoMajor,
		ProtoMinor: req.ProtoMinor,
		Header:     header,
		Body:       http.NoBody,
		Request:    req,
	}
}

func formatSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// KeyFunc extracts the rate-limiting key from a request (e.g. the target
// authority, or source IP for inbound traffic). A KeyFunc that returns ""
// skips rate limiting for that request.
type KeyFunc func(*http.Request) string

// TokenBucketTransport is the default local rate limiter: one
// golang.org/x/time/rate limiter per key, created lazily and shared
// across requests with the same key. Inner is delegated to unchanged once
// a token is available.
type TokenBucketTransport struct {
	Inner http.RoundTripper
	KeyFn KeyFunc
	RPS   float64
	Burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// RoundTrip implements http.RoundTripper.
func (t *TokenBucketTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	key := t.KeyFn(req)
	if key == "" {
		return t.Inner.RoundTrip(req)
	}

	limiter := t.limiterFor(key)
	if !limiter.Allow() {
		return rejectedResponse(req, time.Duration(float64(time.Second)/t.RPS)), nil
	}
	return t.Inner.RoundTrip(req)
}

func (t *TokenBucketTransport) limiterFor(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limiters == nil {
		t.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := t.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(t.RPS), t.Burst)
		t.limiters[key] = l
	}
	return l
}

// CounterTransport gates requests using a shared Store (e.g. RedisStore),
// so multiple sidecar instances enforce one combined limit per key.
type CounterTransport struct {
	Inner  http.RoundTripper
	KeyFn  KeyFunc
	Store  Store
	Limit  int64
	Window time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *CounterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	key := t.KeyFn(req)
	if key == "" {
		return t.Inner.RoundTrip(req)
	}

	count, ttl, err := t.Store.Increment(req.Context(), key, t.Window)
	if err != nil {
		// A backend failure should not block traffic: fail open.
		return t.Inner.RoundTrip(req)
	}
	if count > t.Limit {
		return rejectedResponse(req, ttl), nil
	}
	return t.Inner.RoundTrip(req)
}

// ByAuthority builds a KeyFunc keying on the forwarded request's Host,
// the common case for gating outbound traffic per destination.
func ByAuthority() KeyFunc {
	return func(req *http.Request) string { return req.Host }
}
