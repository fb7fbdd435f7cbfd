package metrics

import "context"

// classifierKey is the context key under which a caller-supplied
// ClassifyResponse is attached to a request. *http.Request has no
// extension map; a context value keyed by an unexported type is the
// idiomatic Go equivalent of "attach to the request's extensions under the
// classifier's own type identity."
type classifierKey struct{}

// WithClassifier returns a context carrying c as the ClassifyResponse the
// middleware should use for requests issued with it. Callers that don't
// attach one get the default (see Transport in transport.go).
func WithClassifier(ctx context.Context, c ClassifyResponse) context.Context {
	return context.WithValue(ctx, classifierKey{}, c)
}

// classifierFromContext returns the ClassifyResponse attached to ctx, or
// ok=false if none was attached.
func classifierFromContext(ctx context.Context) (ClassifyResponse, bool) {
	c, ok := ctx.Value(classifierKey{}).(ClassifyResponse)
	return c, ok
}
