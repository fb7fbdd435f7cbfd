package metrics

import "net/http"

// Factory builds an http.RoundTripper for a given target. It is the Go
// analogue of the tower MakeService the original middleware wraps.
type Factory[K comparable] interface {
	New(target K) http.RoundTripper
}

// FactoryFunc adapts a plain function to Factory.
type FactoryFunc[K comparable] func(target K) http.RoundTripper

// New implements Factory.
func (f FactoryFunc[K]) New(target K) http.RoundTripper { return f(target) }

// Layer holds a handle to the shared Registry and produces, from any inner
// Factory, a wrapped Factory whose stages record metrics. Cloning a Layer
// (a plain struct copy) clones the registry handle, not the registry
// itself — every copy observes the same underlying map, matching spec.md
// §4.7.
type Layer[K comparable] struct {
	registry          *Registry[K, Class]
	defaultClassifier ClassifyResponse
}

// NewLayer builds a Layer over registry, using GRPCClassifier as the
// default classifier for requests with none attached via WithClassifier.
func NewLayer[K comparable](registry *Registry[K, Class]) *Layer[K] {
	return &Layer[K]{
		registry:          registry,
		defaultClassifier: GRPCClassifier{},
	}
}

// Wrap returns a Factory that, for each target, resolves the target's
// Metrics record once and instantiates a Transport caching that handle —
// spec.md §4.7's "propagating the registry handle through per-target
// service instances."
func (l *Layer[K]) Wrap(inner Factory[K]) Factory[K] {
	return wrappedFactory[K]{layer: l, inner: inner}
}

type wrappedFactory[K comparable] struct {
	layer *Layer[K]
	inner Factory[K]
}

// New implements Factory.
func (f wrappedFactory[K]) New(target K) http.RoundTripper {
	return &Transport{
		inner:             f.inner.New(target),
		metrics:           f.layer.registry.Resolve(target),
		clock:             f.layer.registry.clock,
		defaultClassifier: f.layer.defaultClassifier,
	}
}
