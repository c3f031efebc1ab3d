package learning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/store"
)

// CompletionRecorder creates completion records once every required video
// is completed.
type CompletionRecorder struct {
	completions store.CompletionStore
	now         func() time.Time
	logger      *slog.Logger
}

// NewCompletionRecorder creates a CompletionRecorder.
func NewCompletionRecorder(completions store.CompletionStore, logger *slog.Logger) *CompletionRecorder {
	if completions == nil {
		panic("completions cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionRecorder{
		completions: completions,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "completion_recorder")),
	}
}

// Record persists a confirmed completion for userID.
//
// When a required video is not completed in records it returns an
// *IncompleteRequirementsError and writes nothing. When the user already has
// a completion record it returns that record together with
// ErrAlreadyCompleted. Store errors are returned unchanged.
func (r *CompletionRecorder) Record(
	ctx context.Context,
	userID int64,
	required []string,
	records []domain.ProgressRecord,
) (*domain.CompletionRecord, error) {
	log := logger.FromContextOrDefault(ctx, r.logger).With(slog.Int64("user_id", userID))

	snapshot := domain.SnapshotFromRecords(records)
	if missing := domain.MissingVideos(required, snapshot); len(missing) > 0 {
		log.Debug("completion attempt with missing requirements", slog.Any("missing", missing))
		return nil, &IncompleteRequirementsError{Missing: missing}
	}

	record, err := domain.NewCompletionRecord(userID, snapshot, r.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	err = r.completions.Create(ctx, record)
	if err == nil {
		log.Info("completion recorded", slog.Time("completed_at", record.CompletedAt))
		return record, nil
	}
	if !store.IsDuplicateError(err) {
		return nil, err
	}

	existing, getErr := r.completions.GetByUser(ctx, userID)
	if getErr != nil {
		return nil, getErr
	}
	log.Debug("completion already recorded")
	return existing, ErrAlreadyCompleted
}
