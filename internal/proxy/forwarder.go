// Package proxy implements the sidecar's per-edge forwarding: one
// Forwarder listens on a local port and relays traffic to one or more
// real endpoints, dispatching to a TCP relay, an HTTP reverse proxy, or an
// h2c gRPC reverse proxy depending on the edge's protocol. HTTP and gRPC
// edges route every call through the metrics middleware in
// internal/metrics.
package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/matgreaves/run"

	"github.com/edgemesh/sidecar-proxy/internal/metrics"
	"github.com/edgemesh/sidecar-proxy/internal/originaldst"
)

// Forwarder observes traffic for a single inbound or outbound edge: one
// listening port, one routed authority, and a pool of one or more real
// endpoints traffic is relayed to.
type Forwarder struct {
	ListenPort int
	Authority  string            // routed name, e.g. "payments.default.svc"
	Direction  metrics.Direction // Inbound or Outbound
	Protocol   string            // "http", "grpc", or "tcp" (default)
	Endpoints  []string          // one or more "host:port" real targets

	Layer       *metrics.Layer[metrics.Target]                  // shared metrics layer; nil disables metrics
	RateLimit   func(inner http.RoundTripper) http.RoundTripper // optional gate; applied outside the metrics transport so rejected calls aren't recorded
	OriginalDst *originaldst.Resolver                           // optional; overrides round-robin when this listen port has a registered original destination
	Logger      *slog.Logger

	Listener net.Listener // pre-opened listener; avoids a TOCTOU race when set

	next atomic.Uint64 // round-robin cursor over Endpoints
}

// Target returns the metrics key this forwarder's traffic is recorded
// under.
func (f *Forwarder) Target() metrics.Target {
	return metrics.Target{Authority: f.Authority, Direction: f.Direction}
}

// Runner returns a run.Runner that listens and forwards traffic until ctx
// is cancelled, dispatching on Protocol.
func (f *Forwarder) Runner() run.Runner {
	return run.Func(func(ctx context.Context) error {
		switch f.Protocol {
		case "http":
			return f.runHTTP(ctx)
		case "grpc":
			return f.runGRPC(ctx)
		default:
			return f.runTCP(ctx)
		}
	})
}

// getListener returns the pre-opened listener if set, otherwise opens a
// new one on the forwarder's listen address.
func (f *Forwarder) getListener() (net.Listener, error) {
	if f.Listener != nil {
		return f.Listener, nil
	}
	return net.Listen("tcp", f.listenAddr())
}

// nextEndpoint returns the next real endpoint in round-robin order. It
// panics if Endpoints is empty — a forwarder with no endpoints is a
// configuration bug the caller should catch before starting the runner.
func (f *Forwarder) nextEndpoint() string {
	if len(f.Endpoints) == 0 {
		panic(fmt.Sprintf("proxy: forwarder for %q has no endpoints", f.Authority))
	}
	i := f.next.Add(1) - 1
	return f.Endpoints[i%uint64(len(f.Endpoints))]
}

// resolveEndpoint returns the original destination registered for this
// forwarder's listen port, if OriginalDst has one; otherwise it falls back
// to nextEndpoint's round-robin pool. Every accept on this forwarder
// shares the same listen port, so the lookup only needs to happen once
// per connection, not per packet.
func (f *Forwarder) resolveEndpoint() string {
	if f.OriginalDst != nil {
		if addr, ok := f.OriginalDst.ResolvePort(f.ListenPort); ok {
			return addr
		}
	}
	return f.nextEndpoint()
}

func (f *Forwarder) listenAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", f.ListenPort)
}

func (f *Forwarder) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
