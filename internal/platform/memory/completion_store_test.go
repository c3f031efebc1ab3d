package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompletion(t *testing.T, userID int64, at time.Time) *domain.CompletionRecord {
	t.Helper()
	rec, err := domain.NewCompletionRecord(userID, []domain.VideoSnapshot{
		{VideoID: "intro", Progress: 100, WatchedPercentage: 100, Completed: true},
	}, at)
	require.NoError(t, err)
	return rec
}

func TestCompletionStore_CreateOncePerUser(t *testing.T) {
	s := NewCompletionStore(nil)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Create(ctx, newCompletion(t, 7, at))
			if err == nil {
				created.Add(1)
				return
			}
			assert.ErrorIs(t, err, store.ErrCompletionExists)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
}

func TestCompletionStore_GetByUserReturnsCopy(t *testing.T) {
	s := NewCompletionStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newCompletion(t, 7, time.Now())))

	got, err := s.GetByUser(ctx, 7)
	require.NoError(t, err)
	got.Snapshot[0].Progress = 1

	again, err := s.GetByUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 100, again.Snapshot[0].Progress)

	_, err = s.GetByUser(ctx, 8)
	assert.ErrorIs(t, err, store.ErrCompletionNotFound)
}

func TestCompletionStore_MarkCertificateGeneratedOnce(t *testing.T) {
	s := NewCompletionStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newCompletion(t, 7, time.Now())))

	marked, err := s.MarkCertificateGenerated(ctx, 7, "cert-1", "https://certs.example.com/cert-1")
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = s.MarkCertificateGenerated(ctx, 7, "cert-2", "")
	require.NoError(t, err)
	assert.False(t, marked)

	rec, err := s.GetByUser(ctx, 7)
	require.NoError(t, err)
	assert.True(t, rec.CertificateGenerated)
	assert.Equal(t, "cert-1", rec.CertificateID)

	_, err = s.MarkCertificateGenerated(ctx, 99, "cert-3", "")
	assert.ErrorIs(t, err, store.ErrCompletionNotFound)
}

func TestCompletionStore_ListPendingCertification(t *testing.T) {
	s := NewCompletionStore(nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, newCompletion(t, 3, base.Add(2*time.Hour))))
	require.NoError(t, s.Create(ctx, newCompletion(t, 1, base)))
	require.NoError(t, s.Create(ctx, newCompletion(t, 2, base.Add(time.Hour))))
	_, err := s.MarkCertificateGenerated(ctx, 2, "cert", "")
	require.NoError(t, err)

	pending, err := s.ListPendingCertification(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(1), pending[0].UserID)
	assert.Equal(t, int64(3), pending[1].UserID)

	limited, err := s.ListPendingCertification(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, int64(1), limited[0].UserID)
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()
	ctx := context.Background()

	approved, err := d.HasApprovedApplication(ctx, 7)
	require.NoError(t, err)
	assert.False(t, approved)

	d.SetApproved(7, true)
	approved, err = d.HasApprovedApplication(ctx, 7)
	require.NoError(t, err)
	assert.True(t, approved)

	_, err = d.GetUserProfile(ctx, 7)
	assert.ErrorIs(t, err, store.ErrProfileNotFound)

	d.SetProfile(domain.UserProfile{UserID: 7, DisplayName: "Ana", EmailOrUsername: "ana@example.com"})
	p, err := d.GetUserProfile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName)
}
