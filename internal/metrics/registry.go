package metrics

import (
	"sync"
	"time"
)

// Registry is the process-wide mapping from target keys to shared Metrics
// records. It is shared by every pipeline stage constructed from the same
// Layer, and by whatever external collaborator renders the aggregated
// metrics (not specified here — see spec.md §1 Non-goals).
//
// K is the opaque target key (e.g. authority + routing annotations); C is
// the opaque class produced by a Classifier. Both must be comparable so
// they can key a Go map — the direct analogue of "hashable, equatable."
type Registry[K comparable, C comparable] struct {
	buckets []time.Duration
	clock   Clock

	mu       sync.Mutex
	byTarget map[K]*Metrics[C]
}

// NewRegistry builds an empty Registry. buckets are the bucket upper
// bounds every Metrics record created by this registry will use for its
// per-status latency histograms; clock is the time source passed through
// to every record (SystemClock in production, a fake in tests).
func NewRegistry[K comparable, C comparable](buckets []time.Duration, clock Clock) *Registry[K, C] {
	return &Registry[K, C]{
		buckets:  buckets,
		clock:    clock,
		byTarget: make(map[K]*Metrics[C]),
	}
}

// Resolve looks up target; if absent, it inserts a fresh default Metrics
// record and returns the handle. At most one Metrics record ever exists
// for a given target: every stage constructed for the same target observes
// the same record (invariant 1 in spec.md §3).
//
// A Go sync.Mutex cannot be poisoned the way spec.md's "poisoned lock"
// failure mode describes (that's a property of the source language's lock
// type, not of mutexes in general) — per spec.md's Design Notes, this
// collapses to "lock always succeeds"; Resolve never fails.
func (r *Registry[K, C]) Resolve(target K) *Metrics[C] {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byTarget[target]
	if ok {
		return m
	}
	m = newMetrics[C](r.buckets, r.clock)
	r.byTarget[target] = m
	return m
}

// TargetMetrics pairs a target key with a point-in-time snapshot of its
// Metrics record, returned by Snapshot.
type TargetMetrics[K comparable, C comparable] struct {
	Target  K
	Metrics MetricsSnapshot[C]
}

// Snapshot returns a value-copy snapshot of every (target, Metrics) pair
// currently in the registry, safe for the scrape/formatter collaborator to
// read without holding any lock for long. Iteration order is unspecified.
func (r *Registry[K, C]) Snapshot() []TargetMetrics[K, C] {
	r.mu.Lock()
	records := make(map[K]*Metrics[C], len(r.byTarget))
	for target, m := range r.byTarget {
		records[target] = m
	}
	r.mu.Unlock()

	out := make([]TargetMetrics[K, C], 0, len(records))
	for target, m := range records {
		out = append(out, TargetMetrics[K, C]{Target: target, Metrics: m.Snapshot()})
	}
	return out
}
