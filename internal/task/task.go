package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskTypeCertification identifies a CertificationTask.
const TaskTypeCertification = "certification"

// TaskStatus tracks a task through a single Execute call.
type TaskStatus string

// A task starts pending and ends completed or failed. Tasks are not
// persisted; a failed certification is picked up again by the Sweeper
// because its completion record still has certificate_generated=false.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is background work run by a WorkerPool. Certification requests made
// outside the completion request are the only tasks; they are created by the
// CompletionEventHandler and the Sweeper.
type Task interface {
	ID() uuid.UUID
	Type() string

	// Status is logged by the worker once Execute returns.
	Status() TaskStatus

	// Execute runs the task. The worker passes a context carrying its
	// logger, cancelled when the pool stops.
	Execute(ctx context.Context) error
}

// TaskQueueReader is the consuming side of a queue, used by WorkerPool.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter is the producing side of a queue, used by the event
// handler and the sweep.
type TaskQueueWriter interface {
	// Enqueue never blocks. It fails with ErrQueueFull or ErrQueueClosed.
	Enqueue(task Task) error

	Close()
}
