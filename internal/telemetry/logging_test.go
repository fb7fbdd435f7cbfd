package telemetry_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/edgemesh/sidecar-proxy/internal/telemetry"
)

func TestNewLogger_WritesTextLines(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger(&buf, slog.LevelInfo)
	logger.Info("forwarder started", "authority", "payments.default.svc")

	out := buf.String()
	if !strings.Contains(out, "forwarder started") {
		t.Errorf("output = %q, want it to contain the message", out)
	}
	if !strings.Contains(out, "authority=payments.default.svc") {
		t.Errorf("output = %q, want the authority attribute", out)
	}
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := telemetry.NewLogger(&buf, slog.LevelWarn)
	logger.Info("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("expected no output below the configured level, got %q", buf.String())
	}
	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Errorf("expected output at the configured level")
	}
}

func TestNewLogger_DefaultsToStderrWithoutPanicking(t *testing.T) {
	logger := telemetry.NewLogger(nil, slog.LevelError)
	logger.Error("smoke test")
}
