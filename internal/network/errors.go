package network

import (
	"errors"
	"fmt"
)

// ErrSession indicates a response that carried no usable status or body.
var ErrSession = errors.New("no usable response from server")

// ErrInvalidRequest indicates a request that could not be built, or a
// duplicate submission while an equivalent request is still in flight.
var ErrInvalidRequest = errors.New("invalid request")

// TransportError wraps a connection-level failure (DNS, TLS, refused
// connection) with its underlying cause preserved.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// StatusError is returned when the server answers with a status code
// outside the 2xx range.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}

// DecodingError wraps a failure to decode a response body into the
// expected shape.
type DecodingError struct {
	Cause error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("failed to decode response: %v", e.Cause)
}

func (e *DecodingError) Unwrap() error {
	return e.Cause
}
