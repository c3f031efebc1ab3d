package task

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnwell/microlearn-api/internal/platform/memory"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newTestCertificationTask builds a task for userID over an empty completion
// store. Tests that never execute it only care about its identity.
func newTestCertificationTask(t *testing.T, userID int64) *CertificationTask {
	t.Helper()
	task, err := NewCertificationTask(userID, memory.NewCompletionStore(nil), &MockSubmitter{}, nil)
	require.NoError(t, err)
	return task
}

func TestTaskQueue_EnqueueDeliversInOrder(t *testing.T) {
	queue := NewTaskQueue(3, setupTestLogger())

	for _, userID := range []int64{11, 12, 13} {
		require.NoError(t, queue.Enqueue(newTestCertificationTask(t, userID)))
	}

	for _, want := range []int64{11, 12, 13} {
		select {
		case got := <-queue.GetChannel():
			require.IsType(t, &CertificationTask{}, got)
			assert.Equal(t, want, got.(*CertificationTask).UserID())
			assert.Equal(t, TaskStatusPending, got.Status())
		default:
			t.Fatalf("expected task for user %d", want)
		}
	}
}

func TestTaskQueue_FullReportsCapacity(t *testing.T) {
	queue := NewTaskQueue(1, setupTestLogger())
	require.NoError(t, queue.Enqueue(newTestCertificationTask(t, 1)))

	err := queue.Enqueue(newTestCertificationTask(t, 2))

	require.ErrorIs(t, err, ErrQueueFull)
	assert.EqualError(t, err, "task queue is full: queue capacity 1 reached")
	assert.Len(t, queue.GetChannel(), 1)
}

func TestTaskQueue_Close(t *testing.T) {
	queue := NewTaskQueue(2, setupTestLogger())
	require.NoError(t, queue.Enqueue(newTestCertificationTask(t, 5)))

	queue.Close()
	assert.NotPanics(t, queue.Close)

	assert.ErrorIs(t, queue.Enqueue(newTestCertificationTask(t, 6)), ErrQueueClosed)

	// A sweep that enqueued before shutdown still has its task delivered.
	buffered, ok := <-queue.GetChannel()
	require.True(t, ok)
	assert.Equal(t, int64(5), buffered.(*CertificationTask).UserID())

	_, ok = <-queue.GetChannel()
	assert.False(t, ok, "channel should be closed once drained")
}

func TestTaskQueue_EnqueueRacingClose(t *testing.T) {
	queue := NewTaskQueue(16, setupTestLogger())
	tasks := make([]*CertificationTask, 0, 200)
	for i := 0; i < 200; i++ {
		tasks = append(tasks, newTestCertificationTask(t, int64(i+1)))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	start := make(chan struct{})
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			<-start
			for i := offset; i < len(tasks); i += 8 {
				err := queue.Enqueue(tasks[i])
				switch {
				case err == nil:
					mu.Lock()
					accepted++
					mu.Unlock()
				case errors.Is(err, ErrQueueFull), errors.Is(err, ErrQueueClosed):
				default:
					t.Errorf("unexpected enqueue error: %v", err)
				}
			}
		}(w)
	}

	close(start)
	time.Sleep(time.Millisecond)
	queue.Close()
	wg.Wait()

	received := 0
	for range queue.GetChannel() {
		received++
	}
	assert.Equal(t, accepted, received)
	assert.LessOrEqual(t, received, 16)
}
