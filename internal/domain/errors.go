// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every entity validation error in this package,
// so callers can map them with a single errors.Is check.
var ErrValidation = errors.New("validation failed")

// Common domain errors used across the application.
var (
	// ErrInvalidUserID is returned when a user identifier is not a positive integer.
	ErrInvalidUserID = fmt.Errorf("%w: user ID must be a positive integer", ErrValidation)

	// ErrEmptyVideoID is returned when a video identifier is empty.
	ErrEmptyVideoID = fmt.Errorf("%w: video ID cannot be empty", ErrValidation)

	// ErrInvalidRole is returned when a role name is empty.
	ErrInvalidRole = fmt.Errorf("%w: role cannot be empty", ErrValidation)
)
