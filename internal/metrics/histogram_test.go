package metrics_test

import (
	"testing"
	"time"

	"github.com/edgemesh/sidecar-proxy/internal/metrics"
)

func TestHistogram_AddBucketsAndSum(t *testing.T) {
	bounds := []time.Duration{
		10 * time.Millisecond,
		100 * time.Millisecond,
		time.Second,
	}
	h := metrics.NewHistogram(bounds)

	h.Add(5 * time.Millisecond)   // bucket 0
	h.Add(50 * time.Millisecond)  // bucket 1
	h.Add(50 * time.Millisecond)  // bucket 1
	h.Add(2 * time.Second)        // last bucket (overflow)

	snap := h.Snapshot()
	want := []uint64{1, 2, 1}
	if len(snap.Counts) != len(want) {
		t.Fatalf("Counts = %v, want len %d", snap.Counts, len(want))
	}
	for i, w := range want {
		if snap.Counts[i] != w {
			t.Errorf("Counts[%d] = %d, want %d", i, snap.Counts[i], w)
		}
	}
	if snap.Total != 4 {
		t.Errorf("Total = %d, want 4", snap.Total)
	}
	wantSum := 5*time.Millisecond + 50*time.Millisecond + 50*time.Millisecond + 2*time.Second
	if snap.Sum != wantSum {
		t.Errorf("Sum = %v, want %v", snap.Sum, wantSum)
	}
}

func TestHistogram_ExactBoundaryGoesInBucket(t *testing.T) {
	bounds := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	h := metrics.NewHistogram(bounds)
	h.Add(10 * time.Millisecond)

	snap := h.Snapshot()
	if snap.Counts[0] != 1 || snap.Counts[1] != 0 {
		t.Errorf("Counts = %v, want [1 0]", snap.Counts)
	}
}

func TestNewHistogram_PanicsOnEmptyBounds(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for empty bounds")
		}
	}()
	metrics.NewHistogram(nil)
}

func TestNewHistogram_PanicsOnNonAscendingBounds(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for non-ascending bounds")
		}
	}()
	metrics.NewHistogram([]time.Duration{time.Second, time.Millisecond})
}

func TestDefaultLatencyBuckets_Ascending(t *testing.T) {
	bounds := metrics.DefaultLatencyBuckets()
	if len(bounds) == 0 {
		t.Fatal("expected non-empty bounds")
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			t.Fatalf("bounds not strictly ascending at %d: %v <= %v", i, bounds[i], bounds[i-1])
		}
	}
}
