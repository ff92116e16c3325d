package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrInvalidPolicy is returned when a retry policy fails validation.
	ErrInvalidPolicy = errors.New("resilience: invalid retry policy")
)

// StatusError is the typed error produced for HTTP responses with a status
// of 400 or above. The retry executor classifies failures by inspecting it.
type StatusError struct {
	// Code is the HTTP status code.
	Code int

	// Body holds a snippet of the response body, kept so protocol-level
	// callers can decode provider error objects.
	Body []byte

	// RetryAfter is the raw Retry-After header value, if any.
	RetryAfter string
}

func (e *StatusError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("http status %d", e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
