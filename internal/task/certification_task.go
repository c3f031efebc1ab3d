package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/service/certification"
	"github.com/learnwell/microlearn-api/internal/store"
)

// ErrCertificationFailed is returned by CertificationTask.Execute when the
// submission ended in domain.CertificationFailed. The completion record keeps
// certificate_generated=false, so a later sweep tries again.
var ErrCertificationFailed = errors.New("certification submission failed")

// CertificationTask requests a certificate for one user's completion record.
// It always re-reads the record so a certificate recorded in the meantime is
// never requested twice.
type CertificationTask struct {
	id          uuid.UUID
	userID      int64
	status      TaskStatus
	completions store.CompletionStore
	submitter   certification.Submitter
	logger      *slog.Logger
}

var _ Task = (*CertificationTask)(nil)

// NewCertificationTask creates a pending certification task for a user.
func NewCertificationTask(
	userID int64,
	completions store.CompletionStore,
	submitter certification.Submitter,
	logger *slog.Logger,
) (*CertificationTask, error) {
	if userID <= 0 {
		return nil, domain.ErrInvalidUserID
	}
	if completions == nil {
		return nil, errors.New("completions cannot be nil")
	}
	if submitter == nil {
		return nil, errors.New("submitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CertificationTask{
		id:          uuid.New(),
		userID:      userID,
		status:      TaskStatusPending,
		completions: completions,
		submitter:   submitter,
		logger:      logger.With(slog.String("component", "certification_task")),
	}, nil
}

// ID returns the task's unique identifier
func (t *CertificationTask) ID() uuid.UUID {
	return t.id
}

// Type returns TaskTypeCertification
func (t *CertificationTask) Type() string {
	return TaskTypeCertification
}

// UserID returns the user whose completion is certified
func (t *CertificationTask) UserID() int64 {
	return t.userID
}

// Status returns the current task status
func (t *CertificationTask) Status() TaskStatus {
	return t.status
}

// Execute loads the user's completion record and submits it.
func (t *CertificationTask) Execute(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, t.logger).With(slog.Int64("user_id", t.userID))
	t.status = TaskStatusProcessing

	record, err := t.completions.GetByUser(ctx, t.userID)
	if err != nil {
		t.status = TaskStatusFailed
		if errors.Is(err, store.ErrCompletionNotFound) {
			log.Warn("no completion record to certify")
		}
		return fmt.Errorf("failed to load completion record: %w", err)
	}

	result := t.submitter.Submit(ctx, record)
	if result.Status == domain.CertificationFailed {
		t.status = TaskStatusFailed
		return ErrCertificationFailed
	}

	t.status = TaskStatusCompleted
	log.Info("certification task finished", slog.String("certification", string(result.Status)))
	return nil
}

// CertificationTaskFactory builds certification tasks sharing one set of
// dependencies.
type CertificationTaskFactory struct {
	completions store.CompletionStore
	submitter   certification.Submitter
	logger      *slog.Logger
}

// NewCertificationTaskFactory creates a CertificationTaskFactory.
func NewCertificationTaskFactory(
	completions store.CompletionStore,
	submitter certification.Submitter,
	logger *slog.Logger,
) *CertificationTaskFactory {
	if completions == nil {
		panic("completions cannot be nil")
	}
	if submitter == nil {
		panic("submitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificationTaskFactory{
		completions: completions,
		submitter:   submitter,
		logger:      logger,
	}
}

// CreateTask creates a certification task for the given user.
func (f *CertificationTaskFactory) CreateTask(userID int64) (*CertificationTask, error) {
	return NewCertificationTask(userID, f.completions, f.submitter, f.logger)
}
