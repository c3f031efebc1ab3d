package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/learnwell/microlearn-api/internal/api/shared"
	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/service/auth"
	"github.com/learnwell/microlearn-api/internal/service/learning"
	"github.com/learnwell/microlearn-api/internal/store"
)

// RetryAfterUnavailable is the Retry-After hint sent with 503 responses.
const RetryAfterUnavailable = 5 * time.Second

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidClaims):
		return http.StatusUnauthorized

	// Access gating
	case errors.Is(err, learning.ErrUnauthorized):
		return http.StatusForbidden

	case errors.Is(err, learning.ErrIncompleteRequirements):
		return http.StatusUnprocessableEntity

	// Completing twice is reported as success with the existing record
	case errors.Is(err, learning.ErrAlreadyCompleted):
		return http.StatusOK

	case errors.Is(err, learning.ErrStoreUnavailable),
		store.IsUnavailableError(err):
		return http.StatusServiceUnavailable

	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, learning.ErrInvalidArgument),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidClaims):
		return "Invalid token"

	case errors.Is(err, learning.ErrUnauthorized):
		return "Video is not available at your access level"

	case errors.Is(err, learning.ErrIncompleteRequirements):
		return "Required videos are not completed"

	case errors.Is(err, learning.ErrAlreadyCompleted):
		return "Course already completed"

	case errors.Is(err, learning.ErrStoreUnavailable),
		store.IsUnavailableError(err):
		return "Service temporarily unavailable"

	case store.IsNotFoundError(err):
		return "Not found"

	case errors.Is(err, domain.ErrInvalidUserID):
		return "Invalid user ID"

	case errors.Is(err, domain.ErrEmptyVideoID):
		return "Video ID is required"

	case errors.Is(err, learning.ErrInvalidArgument),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"

	default:
		return "An unexpected error occurred"
	}
}

// IncompleteRequirementsResponse is the 422 body of a completion attempt
// made before every required video was completed.
type IncompleteRequirementsResponse struct {
	Error           string   `json:"error"`
	MissingVideoIDs []string `json:"missing_video_ids"`
	TraceID         string   `json:"trace_id,omitempty"`
}

// HandleAPIError writes the response for a service error. Status and message
// come from MapErrorToStatusCode and GetSafeErrorMessage; fallbackMessage
// replaces the generic message for unexpected errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallbackMessage != "" {
		message = fallbackMessage
	}

	var incomplete *learning.IncompleteRequirementsError
	switch {
	case errors.As(err, &incomplete):
		logger.FromContextOrDefault(r.Context(), slog.Default()).Debug("completion requirements not met",
			slog.Any("missing_video_ids", incomplete.Missing))
		shared.RespondWithJSON(w, r, status, IncompleteRequirementsResponse{
			Error:           message,
			MissingVideoIDs: incomplete.Missing,
			TraceID:         shared.GetTraceID(r.Context()),
		})

	case status == http.StatusServiceUnavailable:
		shared.RespondWithErrorAndLog(w, r, status, message, err, shared.WithRetryAfter(RetryAfterUnavailable))

	case status == http.StatusForbidden:
		shared.RespondWithErrorAndLog(w, r, status, message, err, shared.WithElevatedLogLevel())

	default:
		shared.RespondWithErrorAndLog(w, r, status, message, err)
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'ProgressRequest.Progress' Error:Field validation for 'Progress' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
