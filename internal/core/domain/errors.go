package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTransport  = errors.New("transport error")
	ErrHTTPStatus = errors.New("unexpected http status")
	ErrValidation = errors.New("validation failed")

	// ErrCellClosed is returned by fetches on a cell whose owner was torn down.
	ErrCellClosed = errors.New("cache cell closed")
	// ErrKeyTypeMismatch is returned when a cache key is reused with another payload type.
	ErrKeyTypeMismatch = errors.New("cache key already bound to a different type")
)

// TransportError means the server could not be reached or the exchange broke
// before a status was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// HTTPStatusError is a non-2xx response.
type HTTPStatusError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *HTTPStatusError) Is(target error) bool { return target == ErrHTTPStatus }

// ValidationError rejects malformed action input before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
