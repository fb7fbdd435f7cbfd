package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/edgemesh/sidecar-proxy/internal/metrics"
)

// runHTTP starts an HTTP reverse proxy for this edge. Every call is routed
// through the metrics middleware (internal/metrics), which wraps an
// OpenTelemetry-instrumented innermost transport, and then forwarded to
// the endpoint resolveEndpoint picks: the original destination registered
// for this listen port, or else the next of f.Endpoints in round-robin.
func (f *Forwarder) runHTTP(ctx context.Context) error {
	proxy := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			endpoint := f.resolveEndpoint()
			req.URL.Scheme = "http"
			req.URL.Host = endpoint
			req.Host = endpoint
		},
		Transport: f.httpTransport(),
		ErrorLog:  nil,
	}

	ln, err := f.getListener()
	if err != nil {
		return fmt.Errorf("proxy %s (%s): listen: %w", f.Authority, f.Direction, err)
	}

	srv := &http.Server{Handler: proxy}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	f.logger().Info("http forwarder listening", "authority", f.Authority, "direction", f.Direction.String(), "addr", ln.Addr().String())

	err = srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// httpTransport builds the per-forwarder RoundTripper chain: an
// OpenTelemetry span/propagation layer at the bottom, and the metrics
// middleware on top recording against this forwarder's fixed target. The
// chain is built once per forwarder, not per request, since every request
// through this edge shares the same metrics handle.
func (f *Forwarder) httpTransport() http.RoundTripper {
	innermost := otelhttp.NewTransport(http.DefaultTransport)
	var chain http.RoundTripper = innermost
	if f.Layer != nil {
		factory := f.Layer.Wrap(metrics.FactoryFunc[metrics.Target](func(metrics.Target) http.RoundTripper {
			return innermost
		}))
		chain = factory.New(f.Target())
	}
	if f.RateLimit != nil {
		chain = f.RateLimit(chain)
	}
	return chain
}
