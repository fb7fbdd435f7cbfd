package httpx

import (
	"context"
	"net/http"
	"time"
)

// Serve starts an HTTP server on addr with the provided handler. It blocks
// until ctx is cancelled, then shuts down gracefully with a 5-second
// timeout.
//
//	func main() {
//	    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	    defer stop()
//	    mux := http.NewServeMux()
//	    mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
//	    httpx.Serve(ctx, "127.0.0.1:9990", mux)
//	}
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
