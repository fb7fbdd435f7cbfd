package metrics

import (
	"sync"
	"time"
)

// NoStatus is the by-status map key used for requests that never produced
// a response head (a transport-level error before any head was read).
// Valid HTTP status codes start at 100, so zero is a safe sentinel.
const NoStatus = 0

// ClassMetrics is the leaf counter for one (status, class) pair.
type ClassMetrics struct {
	total Counter
}

// StatusMetrics aggregates one observed HTTP status (or NoStatus): a
// latency histogram shared by every class observed under that status, and
// a per-class counter submap populated on first use.
type StatusMetrics[C comparable] struct {
	latency *Histogram

	mu      sync.Mutex
	byClass map[C]*ClassMetrics
}

func newStatusMetrics[C comparable](buckets []time.Duration) *StatusMetrics[C] {
	return &StatusMetrics[C]{
		latency: NewHistogram(buckets),
		byClass: make(map[C]*ClassMetrics),
	}
}

func (s *StatusMetrics[C]) classFor(class C) *ClassMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	cm, ok := s.byClass[class]
	if !ok {
		cm = &ClassMetrics{}
		s.byClass[class] = cm
	}
	return cm
}

// StatusMetricsSnapshot is a value copy of StatusMetrics, safe to read
// without holding any lock.
type StatusMetricsSnapshot[C comparable] struct {
	Latency HistogramSnapshot
	ByClass map[C]ClassMetricsSnapshot
}

// ClassMetricsSnapshot is a value copy of ClassMetrics.
type ClassMetricsSnapshot struct {
	Total uint64
}

func (s *StatusMetrics[C]) snapshot() StatusMetricsSnapshot[C] {
	s.mu.Lock()
	byClass := make(map[C]ClassMetricsSnapshot, len(s.byClass))
	for c, cm := range s.byClass {
		byClass[c] = ClassMetricsSnapshot{Total: cm.total.Value()}
	}
	s.mu.Unlock()
	return StatusMetricsSnapshot[C]{
		Latency: s.latency.Snapshot(),
		ByClass: byClass,
	}
}

// Metrics is the per-target aggregation record: total request count, the
// wall-clock time of the last mutation, and a submap per observed HTTP
// status (NoStatus for pre-head transport errors). A Metrics is born on
// first resolution for a target (see Registry.Resolve) and lives for the
// process.
type Metrics[C comparable] struct {
	clock   Clock
	buckets []time.Duration

	mu         sync.Mutex
	lastUpdate time.Time
	total      Counter
	byStatus   map[int]*StatusMetrics[C]
}

func newMetrics[C comparable](buckets []time.Duration, clock Clock) *Metrics[C] {
	return &Metrics[C]{
		clock:      clock,
		buckets:    buckets,
		lastUpdate: clock.Now(),
		byStatus:   make(map[int]*StatusMetrics[C]),
	}
}

// RecordTotal increments the total request counter. Called exactly once
// per request that reaches the middleware and becomes observable (see
// body.go and transport.go for the exact trigger).
func (m *Metrics[C]) RecordTotal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUpdate = m.clock.Now()
	m.total.Incr()
}

// statusFor returns the StatusMetrics for status, inserting a fresh
// default one on first use.
func (m *Metrics[C]) statusFor(status int) *StatusMetrics[C] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUpdate = m.clock.Now()
	sm, ok := m.byStatus[status]
	if !ok {
		sm = newStatusMetrics[C](m.buckets)
		m.byStatus[status] = sm
	}
	return sm
}

// RecordLatency records one latency sample under the given status.
func (m *Metrics[C]) RecordLatency(status int, d time.Duration) {
	m.statusFor(status).latency.Add(d)
}

// RecordClass records one class observation under the given status.
func (m *Metrics[C]) RecordClass(status int, class C) {
	m.statusFor(status).classFor(class).total.Incr()
}

// MetricsSnapshot is a value copy of Metrics, safe for the scrape/formatter
// collaborator to read without holding any lock.
type MetricsSnapshot[C comparable] struct {
	LastUpdate time.Time
	Total      uint64
	ByStatus   map[int]StatusMetricsSnapshot[C]
}

// Snapshot returns a point-in-time value copy.
func (m *Metrics[C]) Snapshot() MetricsSnapshot[C] {
	m.mu.Lock()
	byStatus := make(map[int]StatusMetricsSnapshot[C], len(m.byStatus))
	for status, sm := range m.byStatus {
		byStatus[status] = sm.snapshot()
	}
	snap := MetricsSnapshot[C]{
		LastUpdate: m.lastUpdate,
		Total:      m.total.Value(),
		ByStatus:   byStatus,
	}
	m.mu.Unlock()
	return snap
}
