package bootstrap

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/matgreaves/run"

	"github.com/edgemesh/sidecar-proxy/internal/metrics"
	"github.com/edgemesh/sidecar-proxy/internal/originaldst"
	"github.com/edgemesh/sidecar-proxy/internal/proxy"
	"github.com/edgemesh/sidecar-proxy/internal/ratelimit"
)

// buildRuntime holds everything the proxy pipeline needs once Config has
// been loaded: the shared metrics registry/layer, the two edge
// forwarders, the original-destination table they share, and the rate
// limit store backing the gate (if configured).
type buildRuntime struct {
	Registry    *metrics.Registry[metrics.Target, metrics.Class]
	Layer       *metrics.Layer[metrics.Target]
	Inbound     *proxy.Forwarder
	Outbound    *proxy.Forwarder
	OriginalDst *originaldst.Resolver
	rateLimit   *ratelimit.TokenBucketTransport
	limitStore  ratelimit.Store // non-nil only when RateLimitBackend is "redis"
}

// Close releases resources BuildForwarders acquired outside the
// forwarders themselves — currently just the rate limit store's
// connection, when one was opened.
func (rt *buildRuntime) Close() error {
	if rt.limitStore != nil {
		return rt.limitStore.Close()
	}
	return nil
}

// BuildForwarders constructs the inbound and outbound forwarders described
// by cfg, sharing one metrics registry between them so snapshots (and any
// future scrape endpoint) see both edges together. It opens both edges'
// listeners immediately — before either forwarder's Runner starts serving
// — so /ready can report listener readiness without racing the Runner
// goroutines, and so a port conflict fails bootstrap instead of the
// forwarder's run loop.
func BuildForwarders(cfg Config, logger *slog.Logger) (*buildRuntime, error) {
	registry := metrics.NewRegistry[metrics.Target, metrics.Class](metrics.DefaultLatencyBuckets(), metrics.SystemClock{})
	layer := metrics.NewLayer[metrics.Target](registry)

	rt := &buildRuntime{Registry: registry, Layer: layer}

	gate, err := rt.buildRateLimitGate(cfg)
	if err != nil {
		return nil, err
	}

	resolver := originaldst.NewResolver()
	inboundPort := listenPort(cfg.InboundListenAddr)
	outboundPort := listenPort(cfg.OutboundListenAddr)
	if cfg.InboundOriginalDst != "" {
		resolver.RegisterInbound(inboundPort, cfg.InboundOriginalDst)
	}
	if cfg.OutboundOriginalDst != "" {
		resolver.RegisterOutbound(outboundPort, cfg.OutboundOriginalDst)
	}
	rt.OriginalDst = resolver

	rt.Inbound = &proxy.Forwarder{
		ListenPort:  inboundPort,
		Authority:   cfg.InboundAuthority,
		Direction:   metrics.Inbound,
		Protocol:    cfg.Protocol,
		Endpoints:   cfg.InboundEndpoints,
		Layer:       layer,
		RateLimit:   gate,
		OriginalDst: resolver,
		Logger:      logger.With("edge", "inbound"),
	}

	rt.Outbound = &proxy.Forwarder{
		ListenPort:  outboundPort,
		Authority:   cfg.OutboundAuthority,
		Direction:   metrics.Outbound,
		Protocol:    cfg.Protocol,
		Endpoints:   cfg.OutboundEndpoints,
		Layer:       layer,
		OriginalDst: resolver,
		Logger:      logger.With("edge", "outbound"),
	}

	if rt.Inbound.Listener, err = net.Listen("tcp", cfg.InboundListenAddr); err != nil {
		return nil, fmt.Errorf("bootstrap: inbound listen: %w", err)
	}
	if rt.Outbound.Listener, err = net.Listen("tcp", cfg.OutboundListenAddr); err != nil {
		return nil, fmt.Errorf("bootstrap: outbound listen: %w", err)
	}

	return rt, nil
}

// buildRateLimitGate builds the inbound rate limit gate described by cfg,
// or nil if RateLimitRPS is 0. "memory" backs the gate with a local
// TokenBucketTransport; "redis" backs it with a CounterTransport sharing
// counts across sidecar instances through RedisStore.
func (rt *buildRuntime) buildRateLimitGate(cfg Config) (func(http.RoundTripper) http.RoundTripper, error) {
	if cfg.RateLimitRPS <= 0 {
		return nil, nil
	}

	if cfg.RateLimitBackend == "redis" {
		store, err := ratelimit.NewRedisStore(ratelimit.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: rate limit: %w", err)
		}
		rt.limitStore = store
		counter := &ratelimit.CounterTransport{
			KeyFn:  ratelimit.ByAuthority(),
			Store:  store,
			Limit:  int64(cfg.RateLimitRPS),
			Window: time.Second,
		}
		return func(inner http.RoundTripper) http.RoundTripper {
			g := *counter
			g.Inner = inner
			return &g
		}, nil
	}

	rt.rateLimit = &ratelimit.TokenBucketTransport{
		KeyFn: ratelimit.ByAuthority(),
		RPS:   float64(cfg.RateLimitRPS),
		Burst: cfg.RateLimitRPS,
	}
	return func(inner http.RoundTripper) http.RoundTripper {
		g := *rt.rateLimit
		g.Inner = inner
		return &g
	}, nil
}

// Runner returns a run.Group running both edges in parallel; if either
// forwarder's listener fails, the group tears the other down.
func (rt *buildRuntime) Runner() run.Runner {
	return run.Group{
		"inbound":  rt.Inbound.Runner(),
		"outbound": rt.Outbound.Runner(),
	}
}

// listenPort extracts the numeric port from a "host:port" listen address.
// Config validation (hostname_port) already guarantees addr parses.
func listenPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}
