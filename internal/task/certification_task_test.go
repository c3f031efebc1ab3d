package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/memory"
	"github.com/learnwell/microlearn-api/internal/service/certification"
	"github.com/learnwell/microlearn-api/internal/store"
)

// MockSubmitter is a mock implementation of certification.Submitter
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, record *domain.CompletionRecord) certification.Result {
	args := m.Called(ctx, record)
	return args.Get(0).(certification.Result)
}

func seedCompletion(t *testing.T, completions *memory.CompletionStore, userID int64, completedAt time.Time) {
	t.Helper()
	rec, err := domain.NewCompletionRecord(userID, []domain.VideoSnapshot{
		{VideoID: "intro", Progress: 100, Completed: true},
	}, completedAt)
	require.NoError(t, err)
	require.NoError(t, completions.Create(context.Background(), rec))
}

func TestCertificationTask_Execute(t *testing.T) {
	t.Run("submits stored record", func(t *testing.T) {
		completions := memory.NewCompletionStore(nil)
		seedCompletion(t, completions, 7, time.Now())
		submitter := &MockSubmitter{}
		submitter.On("Submit", mock.Anything, mock.MatchedBy(func(r *domain.CompletionRecord) bool {
			return r.UserID == 7 && r.Confirmed
		})).Return(certification.Result{Status: domain.CertificationOK, CertificateID: "c-1"}).Once()

		task, err := NewCertificationTask(7, completions, submitter, setupTestLogger())
		require.NoError(t, err)

		assert.NoError(t, task.Execute(context.Background()))
		assert.Equal(t, TaskStatusCompleted, task.Status())
		submitter.AssertExpectations(t)
	})

	t.Run("failed submission returns error", func(t *testing.T) {
		completions := memory.NewCompletionStore(nil)
		seedCompletion(t, completions, 7, time.Now())
		submitter := &MockSubmitter{}
		submitter.On("Submit", mock.Anything, mock.Anything).
			Return(certification.Result{Status: domain.CertificationFailed}).Once()

		task, err := NewCertificationTask(7, completions, submitter, nil)
		require.NoError(t, err)

		assert.ErrorIs(t, task.Execute(context.Background()), ErrCertificationFailed)
		assert.Equal(t, TaskStatusFailed, task.Status())
	})

	t.Run("not configured is not a failure", func(t *testing.T) {
		completions := memory.NewCompletionStore(nil)
		seedCompletion(t, completions, 7, time.Now())
		submitter := &MockSubmitter{}
		submitter.On("Submit", mock.Anything, mock.Anything).
			Return(certification.Result{Status: domain.CertificationNotConfigured}).Once()

		task, err := NewCertificationTask(7, completions, submitter, nil)
		require.NoError(t, err)

		assert.NoError(t, task.Execute(context.Background()))
	})

	t.Run("missing record", func(t *testing.T) {
		submitter := &MockSubmitter{}
		task, err := NewCertificationTask(9, memory.NewCompletionStore(nil), submitter, nil)
		require.NoError(t, err)

		err = task.Execute(context.Background())
		assert.ErrorIs(t, err, store.ErrCompletionNotFound)
		assert.Equal(t, TaskStatusFailed, task.Status())
		submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})
}

func TestNewCertificationTask_Validation(t *testing.T) {
	completions := memory.NewCompletionStore(nil)
	submitter := &MockSubmitter{}

	_, err := NewCertificationTask(0, completions, submitter, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)

	_, err = NewCertificationTask(1, nil, submitter, nil)
	assert.Error(t, err)

	_, err = NewCertificationTask(1, completions, nil, nil)
	assert.Error(t, err)
}

func TestCertificationTask_RunsInWorkerPool(t *testing.T) {
	completions := memory.NewCompletionStore(nil)
	seedCompletion(t, completions, 7, time.Now())

	done := make(chan struct{})
	submitter := &MockSubmitter{}
	submitter.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(done) }).
		Return(certification.Result{Status: domain.CertificationOK}).Once()

	queue := NewTaskQueue(4, setupTestLogger())
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.Start()
	defer pool.Stop()

	task, err := NewCertificationTaskFactory(completions, submitter, nil).CreateTask(7)
	require.NoError(t, err)
	require.NoError(t, queue.Enqueue(task))

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Timed out waiting for certification task")
	}
}
