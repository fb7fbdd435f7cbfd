package proxy_test

import (
	"testing"

	"github.com/edgemesh/sidecar-proxy/internal/metrics"
	"github.com/edgemesh/sidecar-proxy/internal/proxy"
)

func TestForwarder_Target(t *testing.T) {
	f := &proxy.Forwarder{
		Authority: "payments.default.svc",
		Direction: metrics.Outbound,
	}
	want := metrics.Target{Authority: "payments.default.svc", Direction: metrics.Outbound}
	if got := f.Target(); got != want {
		t.Errorf("Target() = %+v, want %+v", got, want)
	}
}

func TestForwarder_RunnerDispatchesByProtocol(t *testing.T) {
	// Runner must build without panicking regardless of protocol; the
	// actual dispatch is exercised indirectly through the TCP relay test
	// in tcp_test.go, since http/grpc require a live listener and server loop.
	for _, proto := range []string{"http", "grpc", "tcp", ""} {
		f := &proxy.Forwarder{Protocol: proto, Endpoints: []string{"127.0.0.1:0"}}
		if f.Runner() == nil {
			t.Errorf("Runner() returned nil for protocol %q", proto)
		}
	}
}
