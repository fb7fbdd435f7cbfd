package metrics

import (
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// RequestBody wraps an inbound request body, forwarding reads and close
// unchanged while marking the request's total counter exactly once: either
// immediately, if the body is already at EOF when the wrapper is built
// (an empty-bodied request, per spec.md §4.6 step 2), or on the first byte
// actually read off the wrapped body.
//
// The metrics handle itself is an "at-most-once" latch implemented with an
// atomic flag rather than an Option the wrapper clears — spec.md's Design
// Notes call this out as an equivalent strategy. This also resolves the
// spec's open question about a body that reports end-of-stream at entry
// and then still yields frames (a contract violation): the latch makes a
// second mark a no-op instead of a double count.
type RequestBody struct {
	inner  io.ReadCloser
	marked atomic.Bool
	onMark func()
}

// NewRequestBody wraps inner. If emptyAtEntry is true (the body reports
// end-of-stream at call entry), the request is marked immediately.
// onMark is called at most once, the first time the request is marked; it
// is nil-safe for callers with no metrics handle to record against.
func NewRequestBody(inner io.ReadCloser, emptyAtEntry bool, onMark func()) *RequestBody {
	b := &RequestBody{inner: inner, onMark: onMark}
	if emptyAtEntry {
		b.mark()
	}
	return b
}

func (b *RequestBody) mark() {
	if b.marked.CompareAndSwap(false, true) && b.onMark != nil {
		b.onMark()
	}
}

// Read implements io.Reader, marking the request on the first produced
// frame.
func (b *RequestBody) Read(p []byte) (int, error) {
	n, err := b.inner.Read(p)
	if n > 0 {
		b.mark()
	}
	return n, err
}

// Close implements io.Closer. RequestBody performs no bookkeeping on
// close: by spec.md §5, the request's total counter is either already
// incremented by the time meaningful work started, or legitimately never
// counted because the stream was cancelled before any frame.
func (b *RequestBody) Close() error {
	return b.inner.Close()
}

// ResponseBody wraps an outbound response body, forwarding reads and close
// unchanged while recording exactly one latency sample (on the first
// produced data frame, or at end-of-stream/close for a body that never
// produced one) and exactly one class observation (from trailers, a
// body-stream error, or — on close without either — as end-of-stream with
// no trailers). Close is idempotent with whichever completion path already
// ran: recording is guarded by a sync.Once, so an explicit Close after
// trailers already arrived is a no-op, matching spec.md invariant 6.
//
// Go has no destructors, so Close is the load-bearing finalization point
// spec.md's Design Notes ask for in languages without deterministic
// destruction: every caller of an *http.Response already must Close its
// Body, so this rides the existing contract rather than inventing a new
// one.
type ResponseBody struct {
	inner        io.ReadCloser
	trailer      func() http.Header // returns trailers once available, or nil
	classify     ClassifyEos
	streamOpenAt time.Time
	clock        Clock

	onLatency func(d time.Duration)
	onClass   func(class Class)

	latencyRecorded atomic.Bool
	classOnce       sync.Once
}

// ResponseBodyParams bundles the construction-time fields of a
// ResponseBody, mirroring the fields the stage gathers in spec.md §4.6
// step 6.
type ResponseBodyParams struct {
	Inner        io.ReadCloser
	Trailer      func() http.Header
	Classify     ClassifyEos
	StreamOpenAt time.Time
	Clock        Clock
	OnLatency    func(d time.Duration) // nil-safe
	OnClass      func(class Class)     // nil-safe
}

// NewResponseBody builds a ResponseBody from p.
func NewResponseBody(p ResponseBodyParams) *ResponseBody {
	return &ResponseBody{
		inner:        p.Inner,
		trailer:      p.Trailer,
		classify:     p.Classify,
		streamOpenAt: p.StreamOpenAt,
		clock:        p.Clock,
		onLatency:    p.OnLatency,
		onClass:      p.OnClass,
	}
}

func (b *ResponseBody) recordLatencyOnce() {
	if b.latencyRecorded.CompareAndSwap(false, true) && b.onLatency != nil {
		b.onLatency(b.clock.Now().Sub(b.streamOpenAt))
	}
}

// recordClass consumes the classifier at most once, via whichever
// completion path reaches it first (trailers, body error, or close).
func (b *ResponseBody) recordClass(fn func(ClassifyEos) Class) {
	b.classOnce.Do(func() {
		class := fn(b.classify)
		if b.onClass != nil {
			b.onClass(class)
		}
	})
}

// Read implements io.Reader. The first produced data frame records
// latency; reaching io.EOF classifies from trailers (if any); any other
// error classifies as a body-stream error and is propagated unchanged.
func (b *ResponseBody) Read(p []byte) (int, error) {
	n, err := b.inner.Read(p)
	if n > 0 {
		b.recordLatencyOnce()
	}
	switch {
	case err == io.EOF:
		b.recordLatencyOnce() // a zero-frame response still gets a sample
		b.recordClass(func(c ClassifyEos) Class { return c.Eos(b.trailers()) })
	case err != nil:
		b.recordLatencyOnce()
		b.recordClass(func(c ClassifyEos) Class { return c.Error(err) })
	}
	return n, err
}

func (b *ResponseBody) trailers() http.Header {
	if b.trailer == nil {
		return nil
	}
	if h := b.trailer(); len(h) > 0 {
		return h
	}
	return nil
}

// Close implements io.Closer. It finalizes latency and class if the
// stream was dropped before either was recorded (cancellation, per
// spec.md invariant 6), classifying as end-of-stream with no trailers.
// If trailers or an error already finalized the class, this is a no-op
// beyond closing the underlying body.
func (b *ResponseBody) Close() error {
	err := b.inner.Close()
	b.recordLatencyOnce()
	b.recordClass(func(c ClassifyEos) Class { return c.Eos(nil) })
	return err
}
