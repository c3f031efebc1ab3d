package certauthority

import (
	"errors"
	"fmt"
)

// Common errors returned by the certauthority package
var (
	// ErrNotConfigured is returned when the base URL or API key is missing.
	ErrNotConfigured = errors.New("certification authority not configured")

	// ErrRejected is returned when the authority refuses the submission (4xx other than 429).
	ErrRejected = errors.New("certification request rejected")

	// ErrUnavailable is returned when the authority could not be reached or
	// kept failing after every retry.
	ErrUnavailable = errors.New("certification authority unavailable")

	// ErrInvalidResponse is returned when a successful response cannot be decoded.
	ErrInvalidResponse = errors.New("invalid response from certification authority")
)

// APIError carries the status and message of a failed authority response.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: status %d", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", e.kind, e.StatusCode, e.Message)
}

// Unwrap returns ErrRejected or ErrUnavailable depending on the status.
func (e *APIError) Unwrap() error {
	return e.kind
}
