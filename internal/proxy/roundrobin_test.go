package proxy

import (
	"testing"

	"github.com/edgemesh/sidecar-proxy/internal/originaldst"
)

func TestForwarder_NextEndpointRoundRobins(t *testing.T) {
	f := &Forwarder{Endpoints: []string{"a:1", "b:1", "c:1"}}
	got := []string{f.nextEndpoint(), f.nextEndpoint(), f.nextEndpoint(), f.nextEndpoint()}
	want := []string{"a:1", "b:1", "c:1", "a:1"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestForwarder_NextEndpointPanicsWhenEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic for an empty endpoint pool")
		}
	}()
	f := &Forwarder{Authority: "svc"}
	f.nextEndpoint()
}

func TestForwarder_ResolveEndpointPrefersOriginalDst(t *testing.T) {
	resolver := originaldst.NewResolver()
	resolver.RegisterInbound(4143, "10.0.0.9:8080")

	f := &Forwarder{
		ListenPort:  4143,
		Endpoints:   []string{"a:1", "b:1"},
		OriginalDst: resolver,
	}
	for i := 0; i < 3; i++ {
		if got := f.resolveEndpoint(); got != "10.0.0.9:8080" {
			t.Errorf("resolveEndpoint() = %q, want registered original destination", got)
		}
	}
}

func TestForwarder_ResolveEndpointFallsBackToRoundRobin(t *testing.T) {
	resolver := originaldst.NewResolver() // nothing registered for this port

	f := &Forwarder{
		ListenPort:  4143,
		Endpoints:   []string{"a:1", "b:1"},
		OriginalDst: resolver,
	}
	got := []string{f.resolveEndpoint(), f.resolveEndpoint(), f.resolveEndpoint()}
	want := []string{"a:1", "b:1", "a:1"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}
}
