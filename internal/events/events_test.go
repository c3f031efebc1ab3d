package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_CompletionRecorded(t *testing.T) {
	completedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	event, err := NewEvent(TypeCompletionRecorded, CompletionRecordedPayload{
		UserID:      7,
		CompletedAt: completedAt,
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeCompletionRecorded, event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var payload CompletionRecordedPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, int64(7), payload.UserID)
	assert.True(t, completedAt.Equal(payload.CompletedAt))
}

func TestNewEvent_UnencodablePayload(t *testing.T) {
	_, err := NewEvent("broken", make(chan int))
	assert.Error(t, err)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *Event
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}
