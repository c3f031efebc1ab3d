package learning

import (
	"errors"
	"fmt"
	"strings"

	"github.com/learnwell/microlearn-api/internal/service/certification"
)

// Errors returned by Service. Callers check them with errors.Is; the API
// layer maps each to a status code.
var (
	// ErrInvalidArgument indicates a malformed user or video identifier.
	// Nothing was written.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnauthorized indicates the user's access level does not cover the
	// requested video. The store was not touched.
	ErrUnauthorized = errors.New("video not accessible at current access level")

	// ErrIncompleteRequirements indicates required videos are not completed.
	// The concrete error is *IncompleteRequirementsError.
	ErrIncompleteRequirements = errors.New("incomplete requirements")

	// ErrAlreadyCompleted indicates the user already has a completion record.
	// It is not a failure: the existing record is returned with it.
	ErrAlreadyCompleted = errors.New("course already completed")

	// ErrStoreUnavailable indicates the backing store could not be reached
	// or timed out. The operation may be retried.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCertificationUnavailable is only ever reported as the certification
	// status of a completion; no operation returns it.
	ErrCertificationUnavailable = certification.ErrCertificationUnavailable
)

// IncompleteRequirementsError lists the required videos that are missing a
// completion.
type IncompleteRequirementsError struct {
	// Missing holds the video IDs in ascending order.
	Missing []string
}

func (e *IncompleteRequirementsError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrIncompleteRequirements.Error(), strings.Join(e.Missing, ", "))
}

// Is makes errors.Is(err, ErrIncompleteRequirements) hold.
func (e *IncompleteRequirementsError) Is(target error) bool {
	return target == ErrIncompleteRequirements
}

// ServiceError wraps unexpected errors from the learning service with the
// operation that failed.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit_progress")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
