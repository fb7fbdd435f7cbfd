package proxy

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/edgemesh/sidecar-proxy/internal/metrics"
)

// runGRPC starts an HTTP/2-cleartext reverse proxy for this edge.
// Structurally identical to runHTTP, but dials the real endpoint over h2c
// so unary and streaming gRPC calls both forward correctly, and classifies
// responses using the grpc-status trailer (internal/metrics.GRPCClassifier,
// the default classifier the metrics layer attaches).
func (f *Forwarder) runGRPC(ctx context.Context) error {
	proxy := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			endpoint := f.resolveEndpoint()
			req.URL.Scheme = "http"
			req.URL.Host = endpoint
			req.Host = endpoint
		},
		FlushInterval: -1, // stream frames through immediately
		Transport:     f.grpcTransport(),
	}

	ln, err := f.getListener()
	if err != nil {
		return fmt.Errorf("proxy %s (%s): listen: %w", f.Authority, f.Direction, err)
	}

	h2s := &http2.Server{}
	handler := h2c.NewHandler(proxy, h2s)
	srv := &http.Server{Handler: handler}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	f.logger().Info("grpc forwarder listening", "authority", f.Authority, "direction", f.Direction.String(), "addr", ln.Addr().String())

	err = srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// grpcTransport builds the same metrics-wrapped chain as httpTransport,
// but over an HTTP/2-cleartext RoundTripper so the call stays a single
// long-lived stream end to end.
func (f *Forwarder) grpcTransport() http.RoundTripper {
	innermost := otelhttp.NewTransport(&http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, network, addr)
		},
	})
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
