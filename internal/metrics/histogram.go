package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultLatencyBuckets returns the default upper bounds for a latency
// Histogram, built from Prometheus's own default HTTP-latency bucket
// convention (5ms..10s) so that operators see the same shape they're used
// to from the separately-rendered scrape endpoint this middleware doesn't
// own. The last bucket's upper bound is +Inf (represented as the maximum
// duration).
func DefaultLatencyBuckets() []time.Duration {
	bounds := prometheus.DefBuckets // 5ms .. 10s, 11 buckets
	out := make([]time.Duration, 0, len(bounds)+1)
	for _, s := range bounds {
		out = append(out, time.Duration(s*float64(time.Second)))
	}
	return append(out, time.Duration(1<<63-1))
}

// Histogram is a bucketed latency histogram with precomputed, externally
// supplied bucket boundaries. The zero value is not ready to use; create
// one with NewHistogram.
type Histogram struct {
	bounds []time.Duration // ascending; last entry acts as +Inf
	counts []atomic.Uint64 // counts[i] = observations in (bounds[i-1], bounds[i]]; the last also takes anything larger
	sum    atomic.Int64    // total nanoseconds observed
	total  atomic.Uint64   // total observations
}

// NewHistogram builds a Histogram with the given ascending bucket upper
// bounds. Panics if bounds is empty or not strictly ascending — these are
// a programming-time configuration, not runtime input.
func NewHistogram(bounds []time.Duration) *Histogram {
	if len(bounds) == 0 {
		panic("metrics: NewHistogram requires at least one bucket bound")
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			panic("metrics: NewHistogram bounds must be strictly ascending")
		}
	}
	h := &Histogram{
		bounds: append([]time.Duration(nil), bounds...),
		counts: make([]atomic.Uint64, len(bounds)),
	}
	return h
}

// Add records a duration observation: increments the first bucket whose
// upper bound is >= d, and the running sum.
func (h *Histogram) Add(d time.Duration) {
	i := 0
	for i < len(h.bounds)-1 && h.bounds[i] < d {
		i++
	}
	h.counts[i].Add(1)
	h.sum.Add(int64(d))
	h.total.Add(1)
}

// HistogramSnapshot is an immutable, safe-to-read-without-a-lock copy of a
// Histogram's state.
type HistogramSnapshot struct {
	Bounds []time.Duration
	Counts []uint64
	Sum    time.Duration
	Total  uint64
}

// Snapshot returns a value copy of the histogram's current state.
func (h *Histogram) Snapshot() HistogramSnapshot {
	counts := make([]uint64, len(h.counts))
	for i := range h.counts {
		counts[i] = h.counts[i].Load()
	}
	return HistogramSnapshot{
		Bounds: append([]time.Duration(nil), h.bounds...),
		Counts: counts,
		Sum:    time.Duration(h.sum.Load()),
		Total:  h.total.Load(),
	}
}
