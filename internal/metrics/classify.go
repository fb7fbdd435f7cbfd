package metrics

import (
	"net/http"
	"strconv"

	"google.golang.org/grpc/codes"
)

// ClassifyResponse decides, given the response head (or a transport error
// observed before any head arrived), how to begin classifying a request.
// It is the first half of a two-phase capability: the response head
// transitions it into a ClassifyEos. Implementations should be cheap to
// construct — one is built per request.
type ClassifyResponse interface {
	// Start is called once a response head is available, and returns the
	// ClassifyEos that will observe the rest of the stream.
	Start(status int, header http.Header) ClassifyEos

	// Error is called when the inner call fails before any response head
	// is produced. It returns a terminal class directly — there is no
	// stream left to classify.
	Error(err error) Class
}

// ClassifyEos is the second half of the classifier capability, bound to a
// specific response. It observes the rest of the response body and
// produces exactly one terminal Class.
type ClassifyEos interface {
	// Eos is called when the body ends, with trailers if any were sent
	// (nil if the stream ended without trailers, including end-of-stream
	// on drop — see body.go).
	Eos(trailer http.Header) Class

	// Error is called when the body stream fails before reaching its end.
	Error(err error) Class
}

// Class is the opaque outcome of a classified request. Outcome is the
// coarse success/failure distinction every classifier must produce;
// GRPCCode carries the more specific reason when known. Class is
// comparable, so it can key the per-status class submap in record.go.
type Class struct {
	Outcome  Outcome
	GRPCCode codes.Code
}

// Outcome is the coarse classification of a request's result.
type Outcome int

const (
	Success Outcome = iota
	Failure
)

func (o Outcome) String() string {
	if o == Success {
		return "success"
	}
	return "failure"
}

// GRPCClassifier is the default ClassifyResponse/ClassifyEos: it treats a
// grpc-status trailer of "0" (or, for non-gRPC responses, any 2xx/3xx
// status with no trailer at all) as Success, everything else as Failure
// carrying the observed gRPC code. A transport error, whether before the
// head or mid-stream, always classifies Failure with codes.Unavailable.
type GRPCClassifier struct {
	status int
}

// Start implements ClassifyResponse.
func (GRPCClassifier) Start(status int, _ http.Header) ClassifyEos {
	return &GRPCClassifier{status: status}
}

// Error implements ClassifyResponse.
func (GRPCClassifier) Error(error) Class {
	return Class{Outcome: Failure, GRPCCode: codes.Unavailable}
}

// Eos implements ClassifyEos.
func (c *GRPCClassifier) Eos(trailer http.Header) Class {
	if trailer != nil {
		if s := trailer.Get("Grpc-Status"); s != "" {
			return grpcClassFromStatus(s)
		}
	}
	if c.status >= 200 && c.status < 400 {
		return Class{Outcome: Success}
	}
	return Class{Outcome: Failure, GRPCCode: httpStatusToGRPCCode(c.status)}
}

// Error implements ClassifyEos.
func (*GRPCClassifier) Error(error) Class {
	return Class{Outcome: Failure, GRPCCode: codes.Unavailable}
}

func grpcClassFromStatus(s string) Class {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return Class{Outcome: Failure, GRPCCode: codes.Unknown}
	}
	code := codes.Code(n)
	if code == codes.OK {
		return Class{Outcome: Success}
	}
	return Class{Outcome: Failure, GRPCCode: code}
}

// httpStatusToGRPCCode maps a plain-HTTP status to the gRPC code that most
// closely matches it, for classes recorded on non-gRPC responses.
func httpStatusToGRPCCode(status int) codes.Code {
	switch {
	case status == http.StatusRequestTimeout:
		return codes.DeadlineExceeded
	case status == http.StatusNotFound:
		return codes.NotFound
	case status == http.StatusForbidden:
		return codes.PermissionDenied
	case status == http.StatusUnauthorized:
		return codes.Unauthenticated
	case status == http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case status >= 500:
		return codes.Unavailable
	case status >= 400:
		return codes.InvalidArgument
	default:
		return codes.Unknown
	}
}
