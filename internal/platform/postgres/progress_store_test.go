package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var progressColumns = []string{
	"user_id", "video_id", "progress", "watched_percentage",
	"completed", "completed_at", "created_at", "updated_at",
}

func newProgressStoreWithMock(t *testing.T, now time.Time) (*PostgresProgressStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewPostgresProgressStore(db, nil)
	s.now = func() time.Time { return now }
	return s, mock
}

func TestNewPostgresProgressStore_PanicsOnNilDB(t *testing.T) {
	assert.Panics(t, func() { NewPostgresProgressStore(nil, nil) })
}

func TestPostgresProgressStore_Merge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reported := now.Add(-time.Minute)

	t.Run("sends clamped values in a single upsert", func(t *testing.T) {
		s, mock := newProgressStoreWithMock(t, now)

		mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, video_id) DO UPDATE SET")).
			WithArgs(int64(7), "v1", 100, 0, true, reported, now).
			WillReturnRows(sqlmock.NewRows(progressColumns).
				AddRow(int64(7), "v1", 100, 0, true, reported, now, now))

		rec, err := s.Merge(context.Background(), 7, "v1", domain.ProgressUpdate{
			Progress:          150,
			WatchedPercentage: -5,
			Completed:         true,
			CompletedAt:       &reported,
		})

		require.NoError(t, err)
		assert.Equal(t, 100, rec.Progress)
		assert.True(t, rec.Completed)
		require.NotNil(t, rec.CompletedAt)
		assert.True(t, reported.Equal(*rec.CompletedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-completion event sends null completed_at", func(t *testing.T) {
		s, mock := newProgressStoreWithMock(t, now)

		mock.ExpectQuery("INSERT INTO video_progress").
			WithArgs(int64(7), "v1", 40, 35, false, nil, now).
			WillReturnRows(sqlmock.NewRows(progressColumns).
				AddRow(int64(7), "v1", 40, 35, false, nil, now, now))

		rec, err := s.Merge(context.Background(), 7, "v1", domain.ProgressUpdate{
			Progress:          40,
			WatchedPercentage: 35,
		})

		require.NoError(t, err)
		assert.Nil(t, rec.CompletedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid key never reaches the database", func(t *testing.T) {
		s, mock := newProgressStoreWithMock(t, now)

		_, err := s.Merge(context.Background(), 0, "v1", domain.ProgressUpdate{})
		assert.ErrorIs(t, err, domain.ErrInvalidUserID)

		_, err = s.Merge(context.Background(), 7, "  ", domain.ProgressUpdate{})
		assert.ErrorIs(t, err, domain.ErrEmptyVideoID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure maps to unavailable", func(t *testing.T) {
		s, mock := newProgressStoreWithMock(t, now)

		mock.ExpectQuery("INSERT INTO video_progress").WillReturnError(&pgconn.PgError{Code: "08006"})

		_, err := s.Merge(context.Background(), 7, "v1", domain.ProgressUpdate{Progress: 10})

		assert.ErrorIs(t, err, store.ErrUnavailable)
		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "merge", storeErr.Operation)
	})
}

func TestPostgresProgressStore_ListByUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns rows in order", func(t *testing.T) {
		s, mock := newProgressStoreWithMock(t, now)

		mock.ExpectQuery("FROM video_progress").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(progressColumns).
				AddRow(int64(7), "a", 100, 100, true, now, now, now).
				AddRow(int64(7), "b", 20, 15, false, nil, now, now))

		records, err := s.ListByUser(context.Background(), 7)

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "a", records[0].VideoID)
		assert.NotNil(t, records[0].CompletedAt)
		assert.Equal(t, "b", records[1].VideoID)
		assert.Nil(t, records[1].CompletedAt)
	})

	t.Run("no rows yields empty slice", func(t *testing.T) {
		s, mock := newProgressStoreWithMock(t, now)

		mock.ExpectQuery("FROM video_progress").
			WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows(progressColumns))

		records, err := s.ListByUser(context.Background(), 8)

		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("timeout maps to unavailable", func(t *testing.T) {
		s, mock := newProgressStoreWithMock(t, now)

		mock.ExpectQuery("FROM video_progress").WillReturnError(context.DeadlineExceeded)

		_, err := s.ListByUser(context.Background(), 7)
		assert.ErrorIs(t, err, store.ErrUnavailable)
	})
}
