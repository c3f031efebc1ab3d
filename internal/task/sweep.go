package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/learnwell/microlearn-api/internal/store"
)

// DefaultSweepBatchSize is used when a Sweeper is created with a
// non-positive batch size.
const DefaultSweepBatchSize = 50

// Sweeper periodically re-queues certification for confirmed completions
// whose certificate was never recorded, e.g. because the authority was down
// or the process stopped while a task was still buffered.
type Sweeper struct {
	completions store.CompletionStore
	factory     *CertificationTaskFactory
	queue       TaskQueueWriter
	batchSize   int
	timeout     time.Duration
	logger      *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper creates a Sweeper. timeout bounds the store query of one run.
func NewSweeper(
	completions store.CompletionStore,
	factory *CertificationTaskFactory,
	queue TaskQueueWriter,
	batchSize int,
	timeout time.Duration,
	logger *slog.Logger,
) *Sweeper {
	if completions == nil {
		panic("completions cannot be nil")
	}
	if factory == nil {
		panic("factory cannot be nil")
	}
	if queue == nil {
		panic("queue cannot be nil")
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		completions: completions,
		factory:     factory,
		queue:       queue,
		batchSize:   batchSize,
		timeout:     timeout,
		logger:      logger.With(slog.String("component", "certification_sweeper")),
	}
}

// RunOnce enqueues a certification task for up to one batch of pending
// completions and returns how many were enqueued. It stops early when the
// queue is full; the remaining records are picked up by the next run.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	pending, err := s.completions.ListPendingCertification(ctx, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending certifications: %w", err)
	}

	enqueued := 0
	for _, record := range pending {
		task, err := s.factory.CreateTask(record.UserID)
		if err != nil {
			s.logger.Error("failed to create certification task",
				slog.Int64("user_id", record.UserID),
				slog.String("error", err.Error()))
			continue
		}
		if err := s.queue.Enqueue(task); err != nil {
			if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed) {
				s.logger.Warn("stopping sweep early",
					slog.String("reason", err.Error()),
					slog.Int("enqueued", enqueued),
					slog.Int("pending", len(pending)))
				return enqueued, nil
			}
			return enqueued, err
		}
		enqueued++
	}

	if len(pending) > 0 {
		s.logger.Info("certification sweep enqueued tasks",
			slog.Int("enqueued", enqueued),
			slog.Int("pending", len(pending)))
	}
	return enqueued, nil
}

// Start schedules RunOnce with a standard five-field cron expression.
// Overlapping runs are skipped.
func (s *Sweeper) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("sweeper already started")
	}

	cronLogger := cronSlogLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("certification sweep failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	c.Start()
	s.cron = c
	s.logger.Info("certification sweep scheduled", slog.String("schedule", schedule))
	return nil
}

// Stop unschedules the sweep and waits for a running sweep to finish or for
// ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("certification sweep still running at shutdown")
	}
}

// cronSlogLogger adapts slog to cron.Logger.
type cronSlogLogger struct {
	logger *slog.Logger
}

func (l cronSlogLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronSlogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
