package bootstrap

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edgemesh/sidecar-proxy/internal/httpx"
	"github.com/edgemesh/sidecar-proxy/internal/telemetry"
)

// AdminHandler builds the sidecar's own admin surface: /live always
// answers once the process is up; /ready answers once both edge
// forwarders have opened their listeners. Both handlers run under their
// own span so the admin surface shows up in the same trace backend the
// data plane's otelhttp spans go to.
func AdminHandler(rt *buildRuntime) http.Handler {
	r := chi.NewRouter()

	r.Get("/live", func(w http.ResponseWriter, req *http.Request) {
		_, span := telemetry.StartSpan(req.Context(), "admin.live")
		defer span.End()
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		_, span := telemetry.StartSpan(req.Context(), "admin.ready")
		defer span.End()
		if rt.Inbound.Listener == nil || rt.Outbound.Listener == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return r
}

// ServeAdmin runs the admin surface on addr until ctx is cancelled, using
// the same small HTTP server internal/httpx provides for non-data-plane
// traffic.
func ServeAdmin(ctx context.Context, addr string, rt *buildRuntime) error {
	return httpx.Serve(ctx, addr, AdminHandler(rt))
}
