// Package bootstrap composes the sidecar's inbound and outbound pipelines
// from configuration and runs them to completion.
package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config is the sidecar's process configuration, loaded from environment
// variables named in the style of the original implementation's
// LINKERD2_PROXY_* variables, renamed MESH_PROXY_*.
type Config struct {
	// InboundListenAddr is where the sidecar accepts traffic bound for the
	// local workload.
	InboundListenAddr string `validate:"required,hostname_port"`

	// OutboundListenAddr is where the sidecar accepts traffic the local
	// workload is issuing outward.
	OutboundListenAddr string `validate:"required,hostname_port"`

	// AdminListenAddr serves /ready and /live for orchestrator health
	// checks.
	AdminListenAddr string `validate:"required,hostname_port"`

	// InboundAuthority is the routed name inbound traffic is recorded
	// under in metrics (internal/metrics.Target.Authority).
	InboundAuthority string `validate:"required"`

	// OutboundAuthority is the routed name outbound traffic is recorded
	// under.
	OutboundAuthority string `validate:"required"`

	// InboundEndpoints are the real local-workload addresses inbound
	// traffic is relayed to, round-robin.
	InboundEndpoints []string `validate:"required,min=1,dive,hostname_port"`

	// OutboundEndpoints are the real addresses outbound traffic is
	// relayed to, round-robin.
	OutboundEndpoints []string `validate:"required,min=1,dive,hostname_port"`

	// Protocol is the wire protocol forwarded: "http", "grpc", or "tcp".
	Protocol string `validate:"required,oneof=http grpc tcp"`

	// RateLimitRPS caps requests per second accepted on the inbound edge;
	// zero disables rate limiting.
	RateLimitRPS int `validate:"gte=0"`

	// RateLimitBackend selects the rate limit counter store: "memory" (the
	// default, a single-instance token bucket) or "redis" (a shared
	// counter, for sidecars fronting the same workload across instances).
	// Only consulted when RateLimitRPS > 0.
	RateLimitBackend string `validate:"required,oneof=memory redis"`

	// RedisAddr is the Redis instance backing RateLimitBackend "redis".
	RedisAddr string `validate:"required_if=RateLimitBackend redis,omitempty,hostname_port"`

	// InboundOriginalDst, when set, overrides inbound round-robin
	// balancing with a single fixed destination — the configured
	// substitute for the kernel's SO_ORIGINAL_DST redirection target
	// (internal/originaldst), for environments (tests, local dev) that
	// can't transparently intercept traffic.
	InboundOriginalDst string `validate:"omitempty,hostname_port"`

	// OutboundOriginalDst is InboundOriginalDst's outbound counterpart.
	OutboundOriginalDst string `validate:"omitempty,hostname_port"`
}

const (
	envInboundListenAddr  = "MESH_PROXY_INBOUND_LISTEN_ADDR"
	envOutboundListenAddr = "MESH_PROXY_OUTBOUND_LISTEN_ADDR"
	envAdminListenAddr    = "MESH_PROXY_ADMIN_LISTEN_ADDR"
	envInboundAuthority   = "MESH_PROXY_INBOUND_AUTHORITY"
	envOutboundAuthority  = "MESH_PROXY_OUTBOUND_AUTHORITY"
	envInboundEndpoints   = "MESH_PROXY_INBOUND_ENDPOINTS"
	envOutboundEndpoints  = "MESH_PROXY_OUTBOUND_ENDPOINTS"
	envProtocol            = "MESH_PROXY_PROTOCOL"
	envRateLimitRPS        = "MESH_PROXY_RATE_LIMIT_RPS"
	envRateLimitBackend    = "MESH_PROXY_RATE_LIMIT_BACKEND"
	envRedisAddr           = "MESH_PROXY_REDIS_ADDR"
	envInboundOriginalDst  = "MESH_PROXY_INBOUND_ORIGINAL_DST"
	envOutboundOriginalDst = "MESH_PROXY_OUTBOUND_ORIGINAL_DST"

	defaultInboundListenAddr  = "127.0.0.1:4143"
	defaultOutboundListenAddr = "127.0.0.1:4140"
	defaultAdminListenAddr    = "127.0.0.1:4191"
	defaultProtocol           = "http"
	defaultRateLimitBackend   = "memory"
)

// LoadConfig reads Config from the environment, applying the same
// defaults the original implementation's env module falls back to for
// optional listen addresses, then validates the result. Bootstrap fails
// before any listener opens if validation fails.
func LoadConfig() (Config, error) {
	rateLimit, err := parseIntEnv(envRateLimitRPS, 0)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		InboundListenAddr:   getEnvDefault(envInboundListenAddr, defaultInboundListenAddr),
		OutboundListenAddr:  getEnvDefault(envOutboundListenAddr, defaultOutboundListenAddr),
		AdminListenAddr:     getEnvDefault(envAdminListenAddr, defaultAdminListenAddr),
		InboundAuthority:    os.Getenv(envInboundAuthority),
		OutboundAuthority:   os.Getenv(envOutboundAuthority),
		InboundEndpoints:    splitEnvList(os.Getenv(envInboundEndpoints)),
		OutboundEndpoints:   splitEnvList(os.Getenv(envOutboundEndpoints)),
		Protocol:            getEnvDefault(envProtocol, defaultProtocol),
		RateLimitRPS:        rateLimit,
		RateLimitBackend:    getEnvDefault(envRateLimitBackend, defaultRateLimitBackend),
		RedisAddr:           os.Getenv(envRedisAddr),
		InboundOriginalDst:  os.Getenv(envInboundOriginalDst),
		OutboundOriginalDst: os.Getenv(envOutboundOriginalDst),
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("sidecar config: %w", err)
	}
	return cfg, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitEnvList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, raw, err)
	}
	return n, nil
}
