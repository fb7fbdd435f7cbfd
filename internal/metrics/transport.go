package metrics

import (
	"net/http"
	"time"
)

// Transport is the Service/Proxy stage of spec.md §4.6, implemented as an
// http.RoundTripper: Go's RoundTripper is the direct analogue of the tower
// Service this middleware wraps in the original implementation — it takes
// a request, may wrap its body, hands it to an inner transport, and gets
// back a response to wrap in turn. There is no separate poll_ready phase
// to translate: net/http's RoundTripper has no readiness step of its own,
// so "readiness simply forwards to the inner service" is satisfied by
// Transport not adding one.
//
// A Transport is instantiated per target by Factory.New (see layer.go),
// which resolves the target's Metrics handle once and caches it here —
// per-request work after that holds only the per-record lock, for O(1)
// time, per spec.md §5.
type Transport struct {
	inner             http.RoundTripper
	metrics           *Metrics[Class] // nil if the registry failed to resolve; bookkeeping is then a no-op
	clock             Clock
	defaultClassifier ClassifyResponse
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	streamOpenAt := t.clock.Now()
	handle := t.metrics

	onMark := func() {
		if handle != nil {
			handle.RecordTotal()
		}
	}

	if req.Body == nil {
		// A nil body is the clearest "end-of-stream at entry" signal Go
		// has to offer; there is nothing to wrap, so mark immediately.
		onMark()
	} else {
		// For client requests, ContentLength 0 with a non-nil Body means
		// "unknown length", not empty; only http.NoBody is empty at entry.
		emptyAtEntry := req.Body == http.NoBody
		req.Body = NewRequestBody(req.Body, emptyAtEntry, onMark)
	}

	classifier := t.classifierFor(req)

	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		// Pre-head transport error: record a class under NoStatus, no
		// latency sample, propagate unchanged.
		if handle != nil {
			handle.RecordClass(NoStatus, classifier.Error(err))
		}
		return nil, err
	}

	status := resp.StatusCode
	eos := classifier.Start(status, resp.Header)
	resp.Body = NewResponseBody(ResponseBodyParams{
		Inner:        resp.Body,
		Trailer:      func() http.Header { return resp.Trailer },
		Classify:     eos,
		StreamOpenAt: streamOpenAt,
		Clock:        t.clock,
		OnLatency: func(d time.Duration) {
			if handle != nil {
				handle.RecordLatency(status, d)
			}
		},
		OnClass: func(class Class) {
			if handle != nil {
				handle.RecordClass(status, class)
			}
		},
	})
	return resp, nil
}

func (t *Transport) classifierFor(req *http.Request) ClassifyResponse {
	if c, ok := classifierFromContext(req.Context()); ok {
		return c
	}
	return t.defaultClassifier
}
