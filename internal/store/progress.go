package store

import (
	"context"

	"github.com/learnwell/microlearn-api/internal/domain"
)

// ProgressStore defines the interface for per-(user, video) progress persistence.
type ProgressStore interface {
	// Merge applies a progress event to the record identified by (userID, videoID)
	// and returns the resulting record.
	//
	// Implementations must produce the same state as domain.MergeProgress and
	// must do so in a single atomic write: two concurrent callers for the same
	// key never interleave a read-modify-write. If the context is cancelled the
	// write is either fully applied or not applied at all.
	//
	// The update is expected to be normalized by the caller (see
	// domain.ProgressUpdate.Normalize); implementations clamp again anyway.
	// Returns ErrUnavailable if the backend cannot be reached.
	Merge(ctx context.Context, userID int64, videoID string, update domain.ProgressUpdate) (*domain.ProgressRecord, error)

	// ListByUser returns every progress record of a user, ordered by video ID.
	// A user without records yields an empty slice.
	ListByUser(ctx context.Context, userID int64) ([]domain.ProgressRecord, error)
}

// CompletionStore defines the interface for completion record persistence.
type CompletionStore interface {
	// Create saves a new completion record.
	// Returns ErrCompletionExists if the user already has one; the existing
	// record is left untouched.
	Create(ctx context.Context, record *domain.CompletionRecord) error

	// GetByUser retrieves the completion record of a user.
	// Returns ErrCompletionNotFound if there is none.
	GetByUser(ctx context.Context, userID int64) (*domain.CompletionRecord, error)

	// MarkCertificateGenerated sets certificate_generated to true together with
	// the certificate identifiers. The flag is written at most once: it returns
	// false without changing anything if it was already set.
	// Returns ErrCompletionNotFound if the user has no completion record.
	MarkCertificateGenerated(ctx context.Context, userID int64, certificateID, certificateURL string) (bool, error)

	// ListPendingCertification returns up to limit confirmed records whose
	// certificate has not been generated yet, oldest first.
	ListPendingCertification(ctx context.Context, limit int) ([]domain.CompletionRecord, error)
}
