package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/learnwell/microlearn-api/internal/events"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
)

// CompletionEventHandler implements events.EventHandler. It turns
// completion.recorded events into certification tasks and enqueues them.
type CompletionEventHandler struct {
	factory *CertificationTaskFactory
	queue   TaskQueueWriter
	logger  *slog.Logger
}

var _ events.EventHandler = (*CompletionEventHandler)(nil)

// NewCompletionEventHandler creates a new CompletionEventHandler.
func NewCompletionEventHandler(
	factory *CertificationTaskFactory,
	queue TaskQueueWriter,
	logger *slog.Logger,
) *CompletionEventHandler {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if queue == nil {
		panic("queue cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionEventHandler{
		factory: factory,
		queue:   queue,
		logger:  logger.With(slog.String("component", "completion_event_handler")),
	}
}

// HandleEvent enqueues a certification task for a completion.recorded event.
// Other event types are ignored.
func (h *CompletionEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	log := logger.FromContextOrDefault(ctx, h.logger).With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
	)

	if event.Type != events.TypeCompletionRecorded {
		log.Debug("ignoring event with unsupported type")
		return nil
	}

	var payload events.CompletionRecordedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		log.Error("failed to unmarshal payload", slog.String("error", err.Error()))
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := h.factory.CreateTask(payload.UserID)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.Int64("user_id", payload.UserID))
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.queue.Enqueue(task); err != nil {
		log.Error("failed to enqueue task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID().String()),
			slog.Int64("user_id", payload.UserID))
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info("certification task enqueued",
		slog.String("task_id", task.ID().String()),
		slog.Int64("user_id", payload.UserID))
	return nil
}
