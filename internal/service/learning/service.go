// Package learning implements progress tracking, access gating and course
// completion on top of the store interfaces.
package learning

import (
	"context"
	"time"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/service/certification"
)

// Actor is the authenticated user a request is made for.
type Actor struct {
	UserID int64
	Role   domain.Role
}

// ApplicationStatusProvider reports whether a user's application was approved.
type ApplicationStatusProvider interface {
	HasApprovedApplication(ctx context.Context, userID int64) (bool, error)
}

// Overview is a user's complete learning state.
type Overview struct {
	UserID           int64                    `json:"user_id"`
	AccessLevel      domain.AccessLevel       `json:"access_level"`
	Videos           []domain.ProgressRecord  `json:"videos"`
	Completion       *domain.CompletionRecord `json:"completion,omitempty"`
	RequiredVideoIDs []string                 `json:"required_video_ids"`
	FirstFreeVideoID string                   `json:"first_free_video_id"`
}

// CompletionOutcome is the result of a completion attempt.
type CompletionOutcome struct {
	Record *domain.CompletionRecord
	// AlreadyCompleted is true when Record existed before this attempt.
	AlreadyCompleted bool
	Certification    certification.Result
}

// Config holds the course settings the service enforces.
type Config struct {
	RequiredVideoIDs []string
	FirstFreeVideoID string
	// StoreTimeout bounds each store or collaborator round trip. Zero
	// leaves only the caller's deadline.
	StoreTimeout time.Duration
	// AsyncCertification emits a completion event instead of calling the
	// certification authority within the request.
	AsyncCertification bool
}

// Service is the learning progress API.
type Service interface {
	// GetProgress returns the user's progress records, access level and
	// completion record.
	GetProgress(ctx context.Context, actor Actor) (*Overview, error)

	// SubmitProgress merges a progress event into the (user, video) record
	// and returns the merged state.
	//
	// Returns:
	//   - ErrInvalidArgument for a non-positive user ID or empty video ID
	//   - ErrUnauthorized if the video is locked for the user's access level
	//   - ErrStoreUnavailable if the store failed or timed out
	SubmitProgress(
		ctx context.Context,
		actor Actor,
		videoID string,
		update domain.ProgressUpdate,
	) (*domain.ProgressRecord, error)

	// AttemptCompletion creates the user's completion record when every
	// required video is completed and requests a certificate for it.
	//
	// A user who already completed the course gets the existing record with
	// AlreadyCompleted set and a nil error. Certification failures never
	// fail the operation; they show up in CompletionOutcome.Certification.
	//
	// Returns:
	//   - *IncompleteRequirementsError (errors.Is ErrIncompleteRequirements)
	//   - ErrInvalidArgument for a non-positive user ID
	//   - ErrStoreUnavailable if the store failed or timed out
	AttemptCompletion(ctx context.Context, actor Actor) (*CompletionOutcome, error)
}
