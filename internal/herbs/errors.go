package herbs

import (
	"errors"
	"fmt"
)

// ErrCacheMiss signals that no usable cached payload exists. It is a control
// signal for the fetch pipeline, not a user-visible failure.
var ErrCacheMiss = errors.New("herbs: cache miss")

// TransportError indicates that no response was received from a source URL.
// The fallback index is not advanced on transport failures.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("herbs: fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ContentRejectedError indicates that every candidate URL returned content
// failing the shape check.
type ContentRejectedError struct {
	Attempts int
}

func (e *ContentRejectedError) Error() string {
	return fmt.Sprintf("herbs: data source is unreachable (%d candidates rejected)", e.Attempts)
}

// DecodeError carries a human-readable cause for a payload that failed
// schema validation. A decode failure never partially populates the
// repository.
type DecodeError struct {
	Cause string
}

func (e *DecodeError) Error() string {
	return "herbs: decode payload: " + e.Cause
}

func newDecodeError(format string, args ...any) *DecodeError {
	return &DecodeError{Cause: fmt.Sprintf(format, args...)}
}
