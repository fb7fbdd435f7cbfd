package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this module's spans in whatever trace backend the
// process's global TracerProvider is wired to (none, by default — spans
// become no-ops until an operator configures one).
const tracerName = "github.com/edgemesh/sidecar-proxy"

// Tracer returns the package-level tracer used for spans this module
// starts itself — the admin surface's /live and /ready handlers
// (internal/bootstrap/admin.go), not the proxied data plane, which is
// instrumented separately by otelhttp.NewTransport's own tracer in
// internal/proxy/http.go and grpc.go.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan is a thin convenience wrapper so callers don't need to import
// otel directly just to start a span on this tracer.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}
