package bootstrap_test

import (
	"testing"

	"github.com/edgemesh/sidecar-proxy/internal/bootstrap"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MESH_PROXY_INBOUND_AUTHORITY", "payments.default.svc")
	t.Setenv("MESH_PROXY_OUTBOUND_AUTHORITY", "orders.default.svc")
	t.Setenv("MESH_PROXY_INBOUND_ENDPOINTS", "127.0.0.1:9000")
	t.Setenv("MESH_PROXY_OUTBOUND_ENDPOINTS", "127.0.0.1:9001,127.0.0.1:9002")
}

func TestLoadConfig_DefaultsApplyWhenUnset(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.InboundListenAddr != "127.0.0.1:4143" {
		t.Errorf("InboundListenAddr = %q, want default", cfg.InboundListenAddr)
	}
	if cfg.OutboundListenAddr != "127.0.0.1:4140" {
		t.Errorf("OutboundListenAddr = %q, want default", cfg.OutboundListenAddr)
	}
	if cfg.AdminListenAddr != "127.0.0.1:4191" {
		t.Errorf("AdminListenAddr = %q, want default", cfg.AdminListenAddr)
	}
	if cfg.Protocol != "http" {
		t.Errorf("Protocol = %q, want default http", cfg.Protocol)
	}
	if cfg.RateLimitRPS != 0 {
		t.Errorf("RateLimitRPS = %d, want 0", cfg.RateLimitRPS)
	}
}

func TestLoadConfig_OverridesFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESH_PROXY_PROTOCOL", "grpc")
	t.Setenv("MESH_PROXY_RATE_LIMIT_RPS", "250")
	t.Setenv("MESH_PROXY_INBOUND_LISTEN_ADDR", "127.0.0.1:5000")

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Protocol != "grpc" {
		t.Errorf("Protocol = %q, want grpc", cfg.Protocol)
	}
	if cfg.RateLimitRPS != 250 {
		t.Errorf("RateLimitRPS = %d, want 250", cfg.RateLimitRPS)
	}
	if cfg.InboundListenAddr != "127.0.0.1:5000" {
		t.Errorf("InboundListenAddr = %q, want override", cfg.InboundListenAddr)
	}
	if len(cfg.OutboundEndpoints) != 2 {
		t.Errorf("OutboundEndpoints = %v, want 2 entries", cfg.OutboundEndpoints)
	}
}

func TestLoadConfig_MissingRequiredFieldFails(t *testing.T) {
	t.Setenv("MESH_PROXY_INBOUND_AUTHORITY", "")
	t.Setenv("MESH_PROXY_OUTBOUND_AUTHORITY", "")
	t.Setenv("MESH_PROXY_INBOUND_ENDPOINTS", "")
	t.Setenv("MESH_PROXY_OUTBOUND_ENDPOINTS", "")

	if _, err := bootstrap.LoadConfig(); err == nil {
		t.Error("LoadConfig() error = nil, want error for missing required fields")
	}
}

func TestLoadConfig_InvalidProtocolFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESH_PROXY_PROTOCOL", "carrier-pigeon")

	if _, err := bootstrap.LoadConfig(); err == nil {
		t.Error("LoadConfig() error = nil, want error for invalid protocol")
	}
}

func TestLoadConfig_InvalidRateLimitFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESH_PROXY_RATE_LIMIT_RPS", "not-a-number")

	if _, err := bootstrap.LoadConfig(); err == nil {
		t.Error("LoadConfig() error = nil, want error for non-integer rate limit")
	}
}

func TestLoadConfig_RateLimitBackendDefaultsToMemory(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RateLimitBackend != "memory" {
		t.Errorf("RateLimitBackend = %q, want default memory", cfg.RateLimitBackend)
	}
}

func TestLoadConfig_RedisBackendWithoutAddrFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESH_PROXY_RATE_LIMIT_BACKEND", "redis")

	if _, err := bootstrap.LoadConfig(); err == nil {
		t.Error("LoadConfig() error = nil, want error for redis backend without MESH_PROXY_REDIS_ADDR")
	}
}

func TestLoadConfig_RedisBackendWithAddrSucceeds(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESH_PROXY_RATE_LIMIT_BACKEND", "redis")
	t.Setenv("MESH_PROXY_REDIS_ADDR", "127.0.0.1:6379")

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RedisAddr != "127.0.0.1:6379" {
		t.Errorf("RedisAddr = %q, want 127.0.0.1:6379", cfg.RedisAddr)
	}
}

func TestLoadConfig_InvalidRateLimitBackendFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESH_PROXY_RATE_LIMIT_BACKEND", "memcached")

	if _, err := bootstrap.LoadConfig(); err == nil {
		t.Error("LoadConfig() error = nil, want error for invalid rate limit backend")
	}
}

func TestLoadConfig_OriginalDstFieldsOptional(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.InboundOriginalDst != "" || cfg.OutboundOriginalDst != "" {
		t.Errorf("original-dst fields = %q/%q, want both empty by default", cfg.InboundOriginalDst, cfg.OutboundOriginalDst)
	}
}

func TestLoadConfig_OriginalDstFieldsAcceptValidAddr(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESH_PROXY_INBOUND_ORIGINAL_DST", "10.0.0.9:8080")
	t.Setenv("MESH_PROXY_OUTBOUND_ORIGINAL_DST", "10.0.0.10:9090")

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.InboundOriginalDst != "10.0.0.9:8080" {
		t.Errorf("InboundOriginalDst = %q, want 10.0.0.9:8080", cfg.InboundOriginalDst)
	}
	if cfg.OutboundOriginalDst != "10.0.0.10:9090" {
		t.Errorf("OutboundOriginalDst = %q, want 10.0.0.10:9090", cfg.OutboundOriginalDst)
	}
}

func TestLoadConfig_InvalidOriginalDstFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESH_PROXY_INBOUND_ORIGINAL_DST", "not-a-hostport")

	if _, err := bootstrap.LoadConfig(); err == nil {
		t.Error("LoadConfig() error = nil, want error for malformed original-dst address")
	}
}
