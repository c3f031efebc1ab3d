package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/store"
)

// mergeProgressQuery applies a progress event in one statement. The row lock
// taken by ON CONFLICT serializes concurrent writers for the same key, and the
// SET clause mirrors domain.MergeProgress.
const mergeProgressQuery = `
	INSERT INTO video_progress AS vp (
		user_id, video_id, progress, watched_percentage,
		completed, completed_at, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	ON CONFLICT (user_id, video_id) DO UPDATE SET
		progress           = GREATEST(vp.progress, EXCLUDED.progress),
		watched_percentage = GREATEST(vp.watched_percentage, EXCLUDED.watched_percentage),
		completed          = vp.completed OR EXCLUDED.completed,
		completed_at       = COALESCE(vp.completed_at, EXCLUDED.completed_at),
		updated_at         = EXCLUDED.updated_at
	RETURNING user_id, video_id, progress, watched_percentage,
		completed, completed_at, created_at, updated_at
`

const listProgressQuery = `
	SELECT user_id, video_id, progress, watched_percentage,
		completed, completed_at, created_at, updated_at
	FROM video_progress
	WHERE user_id = $1
	ORDER BY video_id
`

// PostgresProgressStore implements the store.ProgressStore interface
// using a PostgreSQL database as the storage backend.
type PostgresProgressStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresProgressStore creates a new PostgreSQL implementation of the ProgressStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresProgressStore(db store.DBTX, logger *slog.Logger) *PostgresProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProgressStore{
		db:     db,
		logger: logger.With(slog.String("component", "progress_store")),
		now:    time.Now,
	}
}

// Ensure PostgresProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// Merge implements store.ProgressStore.Merge
func (s *PostgresProgressStore) Merge(
	ctx context.Context,
	userID int64,
	videoID string,
	update domain.ProgressUpdate,
) (*domain.ProgressRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.ValidateProgressKey(userID, videoID); err != nil {
		return nil, store.NewStoreError("progress", "merge", "invalid key", err)
	}

	now := s.now().UTC()
	in := update.Normalize(now)

	var completedAt sql.NullTime
	if in.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *in.CompletedAt, Valid: true}
	}

	row := s.db.QueryRowContext(
		ctx,
		mergeProgressQuery,
		userID,
		videoID,
		in.Progress,
		in.WatchedPercentage,
		in.Completed,
		completedAt,
		now,
	)

	record, err := scanProgress(row)
	if err != nil {
		log.Error("failed to merge progress",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID),
			slog.String("video_id", videoID))
		return nil, store.NewStoreError("progress", "merge", "upsert failed", MapError(err))
	}

	log.Debug("progress merged",
		slog.Int64("user_id", userID),
		slog.String("video_id", videoID),
		slog.Int("progress", record.Progress),
		slog.Bool("completed", record.Completed))
	return record, nil
}

// ListByUser implements store.ProgressStore.ListByUser
func (s *PostgresProgressStore) ListByUser(ctx context.Context, userID int64) ([]domain.ProgressRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, listProgressQuery, userID)
	if err != nil {
		log.Error("failed to list progress",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID))
		return nil, store.NewStoreError("progress", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	records := make([]domain.ProgressRecord, 0)
	for rows.Next() {
		record, err := scanProgress(rows)
		if err != nil {
			return nil, store.NewStoreError("progress", "list", "scan failed", MapError(err))
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("progress", "list", "iteration failed", MapError(err))
	}

	return records, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*domain.ProgressRecord, error) {
	var (
		r           domain.ProgressRecord
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&r.UserID,
		&r.VideoID,
		&r.Progress,
		&r.WatchedPercentage,
		&r.Completed,
		&completedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		r.CompletedAt = &t
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}
