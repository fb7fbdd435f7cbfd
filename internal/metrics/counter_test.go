package metrics_test

import (
	"sync"
	"testing"

	"github.com/edgemesh/sidecar-proxy/internal/metrics"
)

func TestCounter_IncrAndValue(t *testing.T) {
	var c metrics.Counter
	if got := c.Value(); got != 0 {
		t.Fatalf("Value() = %d, want 0", got)
	}
	c.Incr()
	c.Incr()
	c.Incr()
	if got := c.Value(); got != 3 {
		t.Errorf("Value() = %d, want 3", got)
	}
}

func TestCounter_ConcurrentIncr(t *testing.T) {
	var c metrics.Counter
	var wg sync.WaitGroup
	const n = 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			c.Incr()
		}()
	}
	wg.Wait()
	if got := c.Value(); got != n {
		t.Errorf("Value() = %d, want %d", got, n)
	}
}
