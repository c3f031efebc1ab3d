package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/events"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/redact"
	"github.com/learnwell/microlearn-api/internal/service/certification"
	"github.com/learnwell/microlearn-api/internal/store"
)

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	cfg          Config
	progress     store.ProgressStore
	completions  store.CompletionStore
	applications ApplicationStatusProvider
	recorder     *CompletionRecorder
	submitter    certification.Submitter
	emitter      events.EventEmitter
	logger       *slog.Logger
}

// NewService creates a learning Service. emitter is only used when
// cfg.AsyncCertification is set and may be nil otherwise.
func NewService(
	cfg Config,
	progress store.ProgressStore,
	completions store.CompletionStore,
	applications ApplicationStatusProvider,
	submitter certification.Submitter,
	emitter events.EventEmitter,
	logger *slog.Logger,
) Service {
	if progress == nil {
		panic("progress cannot be nil")
	}
	if completions == nil {
		panic("completions cannot be nil")
	}
	if applications == nil {
		panic("applications cannot be nil")
	}
	if submitter == nil {
		panic("submitter cannot be nil")
	}
	if cfg.AsyncCertification && emitter == nil {
		panic("emitter cannot be nil when certification is asynchronous")
	}
	if logger == nil {
		logger = slog.Default()
	}

	required := append([]string(nil), cfg.RequiredVideoIDs...)
	sort.Strings(required)
	cfg.RequiredVideoIDs = required

	return &serviceImpl{
		cfg:          cfg,
		progress:     progress,
		completions:  completions,
		applications: applications,
		recorder:     NewCompletionRecorder(completions, logger),
		submitter:    submitter,
		emitter:      emitter,
		logger:       logger.With(slog.String("component", "learning_service")),
	}
}

// GetProgress implements Service.GetProgress.
func (s *serviceImpl) GetProgress(ctx context.Context, actor Actor) (*Overview, error) {
	const op = "get_progress"
	log := logger.FromContextOrDefault(ctx, s.logger)

	if actor.UserID <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, domain.ErrInvalidUserID)
	}

	records, err := s.listProgress(ctx, actor.UserID)
	if err != nil {
		return nil, s.wrapStoreError(log, op, err)
	}

	completion, err := s.findCompletion(ctx, actor.UserID)
	if err != nil {
		return nil, s.wrapStoreError(log, op, err)
	}

	level := domain.AccessFull
	if !actor.Role.IsAdmin() && completion == nil {
		approved, err := s.hasApprovedApplication(ctx, actor.UserID)
		if err != nil {
			return nil, s.wrapStoreError(log, op, err)
		}
		level = domain.ResolveAccessLevel(actor.Role, approved, false)
	}

	return &Overview{
		UserID:           actor.UserID,
		AccessLevel:      level,
		Videos:           records,
		Completion:       completion,
		RequiredVideoIDs: append([]string(nil), s.cfg.RequiredVideoIDs...),
		FirstFreeVideoID: s.cfg.FirstFreeVideoID,
	}, nil
}

// SubmitProgress implements Service.SubmitProgress.
func (s *serviceImpl) SubmitProgress(
	ctx context.Context,
	actor Actor,
	videoID string,
	update domain.ProgressUpdate,
) (*domain.ProgressRecord, error) {
	const op = "submit_progress"
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.Int64("user_id", actor.UserID),
		slog.String("video_id", videoID),
	)

	if err := domain.ValidateProgressKey(actor.UserID, videoID); err != nil {
		log.Debug("rejected progress event", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	level, err := s.accessLevelFor(ctx, actor, videoID)
	if err != nil {
		return nil, s.wrapStoreError(log, op, err)
	}
	if !domain.CanAccessVideo(videoID, level, s.cfg.FirstFreeVideoID) {
		log.Info("progress denied for locked video", slog.String("access_level", string(level)))
		return nil, ErrUnauthorized
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.progress.Merge(storeCtx, actor.UserID, videoID, update)
	if err != nil {
		return nil, s.wrapStoreError(log, op, err)
	}

	log.Debug("progress merged",
		slog.Int("progress", record.Progress),
		slog.Int("watched_percentage", record.WatchedPercentage),
		slog.Bool("completed", record.Completed))
	return record, nil
}

// AttemptCompletion implements Service.AttemptCompletion.
func (s *serviceImpl) AttemptCompletion(ctx context.Context, actor Actor) (*CompletionOutcome, error) {
	const op = "attempt_completion"
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.Int64("user_id", actor.UserID))

	if actor.UserID <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, domain.ErrInvalidUserID)
	}

	records, err := s.listProgress(ctx, actor.UserID)
	if err != nil {
		return nil, s.wrapStoreError(log, op, err)
	}

	storeCtx, cancel := s.storeContext(ctx)
	record, err := s.recorder.Record(storeCtx, actor.UserID, s.cfg.RequiredVideoIDs, records)
	cancel()

	switch {
	case errors.Is(err, ErrAlreadyCompleted):
		return &CompletionOutcome{
			Record:           record,
			AlreadyCompleted: true,
			Certification: certification.Result{
				Status:         domain.CertificationSkipped,
				CertificateID:  record.CertificateID,
				CertificateURL: record.CertificateURL,
			},
		}, nil
	case errors.Is(err, ErrIncompleteRequirements), errors.Is(err, ErrInvalidArgument):
		return nil, err
	case err != nil:
		return nil, s.wrapStoreError(log, op, err)
	}

	return &CompletionOutcome{
		Record:        record,
		Certification: s.certify(ctx, log, record),
	}, nil
}

// certify submits a new record synchronously or hands it to the background
// workers. A failed hand-off leaves certificate_generated unset for the sweep.
func (s *serviceImpl) certify(
	ctx context.Context,
	log *slog.Logger,
	record *domain.CompletionRecord,
) certification.Result {
	if !s.cfg.AsyncCertification {
		return s.submitter.Submit(ctx, record)
	}

	event, err := events.NewEvent(events.TypeCompletionRecorded, events.CompletionRecordedPayload{
		UserID:      record.UserID,
		CompletedAt: record.CompletedAt,
	})
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		log.Error("failed to queue certification",
			slog.String("error", redact.Error(err)),
			slog.String("cause", ErrCertificationUnavailable.Error()))
		return certification.Result{Status: domain.CertificationFailed}
	}
	return certification.Result{Status: domain.CertificationQueued}
}

// accessLevelFor resolves the actor's access level for videoID. The free
// video and admins need no lookups; otherwise approval and completion are
// read fresh on every call.
func (s *serviceImpl) accessLevelFor(ctx context.Context, actor Actor, videoID string) (domain.AccessLevel, error) {
	if actor.Role.IsAdmin() || videoID == s.cfg.FirstFreeVideoID {
		return domain.AccessFull, nil
	}

	approved, err := s.hasApprovedApplication(ctx, actor.UserID)
	if err != nil {
		return "", err
	}
	if approved {
		return domain.AccessFull, nil
	}

	completion, err := s.findCompletion(ctx, actor.UserID)
	if err != nil {
		return "", err
	}
	confirmed := completion != nil && completion.Confirmed
	return domain.ResolveAccessLevel(actor.Role, approved, confirmed), nil
}

func (s *serviceImpl) hasApprovedApplication(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.applications.HasApprovedApplication(ctx, userID)
}

// findCompletion returns nil without error when the user has no record.
func (s *serviceImpl) findCompletion(ctx context.Context, userID int64) (*domain.CompletionRecord, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.completions.GetByUser(ctx, userID)
	if errors.Is(err, store.ErrCompletionNotFound) {
		return nil, nil
	}
	return record, err
}

func (s *serviceImpl) listProgress(ctx context.Context, userID int64) ([]domain.ProgressRecord, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.progress.ListByUser(ctx, userID)
}

func (s *serviceImpl) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// wrapStoreError maps outages and timeouts to ErrStoreUnavailable and
// validation failures to ErrInvalidArgument. Anything else is wrapped in a
// ServiceError.
func (s *serviceImpl) wrapStoreError(log *slog.Logger, op string, err error) error {
	switch {
	case store.IsUnavailableError(err), errors.Is(err, context.DeadlineExceeded):
		log.Warn("store unavailable",
			slog.String("operation", op),
			slog.String("error", redact.Error(err)))
		return NewServiceError(op, "store unavailable", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	case errors.Is(err, store.ErrInvalidEntity), errors.Is(err, domain.ErrValidation):
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		log.Error("store operation failed",
			slog.String("operation", op),
			slog.String("error", redact.Error(err)))
		return NewServiceError(op, "store operation failed", err)
	}
}
