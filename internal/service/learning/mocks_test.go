package learning_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/events"
	"github.com/learnwell/microlearn-api/internal/service/certification"
)

// MockProgressStore is a mock implementation of store.ProgressStore
type MockProgressStore struct {
	mock.Mock
}

func (m *MockProgressStore) Merge(
	ctx context.Context,
	userID int64,
	videoID string,
	update domain.ProgressUpdate,
) (*domain.ProgressRecord, error) {
	args := m.Called(ctx, userID, videoID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProgressRecord), args.Error(1)
}

func (m *MockProgressStore) ListByUser(ctx context.Context, userID int64) ([]domain.ProgressRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProgressRecord), args.Error(1)
}

// MockApplications is a mock implementation of learning.ApplicationStatusProvider
type MockApplications struct {
	mock.Mock
}

func (m *MockApplications) HasApprovedApplication(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// MockSubmitter is a mock implementation of certification.Submitter
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, record *domain.CompletionRecord) certification.Result {
	args := m.Called(ctx, record)
	return args.Get(0).(certification.Result)
}

// MockEmitter is a mock implementation of events.EventEmitter
type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
