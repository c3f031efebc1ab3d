package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/store"
)

const completionColumns = `user_id, completed_at, snapshot, confirmed,
		certificate_generated, certificate_id, certificate_url, created_at, updated_at`

// PostgresCompletionStore implements the store.CompletionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCompletionStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresCompletionStore creates a new PostgreSQL implementation of the CompletionStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresCompletionStore(db store.DBTX, logger *slog.Logger) *PostgresCompletionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCompletionStore{
		db:     db,
		logger: logger.With(slog.String("component", "completion_store")),
		now:    time.Now,
	}
}

// Ensure PostgresCompletionStore implements store.CompletionStore interface
var _ store.CompletionStore = (*PostgresCompletionStore)(nil)

// Create implements store.CompletionStore.Create
// The unique key on user_id decides which of two concurrent attempts wins;
// the loser gets store.ErrCompletionExists.
func (s *PostgresCompletionStore) Create(ctx context.Context, record *domain.CompletionRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("completion validation failed during create",
			slog.String("error", err.Error()),
			slog.Int64("user_id", record.UserID))
		return store.NewStoreError("completion", "create", "invalid record", err)
	}

	snapshot, err := json.Marshal(record.Snapshot)
	if err != nil {
		return store.NewStoreError("completion", "create", "failed to encode snapshot", err)
	}

	query := `
		INSERT INTO course_completions (` + completionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO NOTHING
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		record.UserID,
		record.CompletedAt,
		snapshot,
		record.Confirmed,
		record.CertificateGenerated,
		nullString(record.CertificateID),
		nullString(record.CertificateURL),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create completion",
			slog.String("error", err.Error()),
			slog.Int64("user_id", record.UserID))
		return store.NewStoreError("completion", "create", "insert failed", MapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("completion", "create", "failed to get rows affected", MapError(err))
	}
	if affected == 0 {
		log.Info("completion already recorded", slog.Int64("user_id", record.UserID))
		return store.ErrCompletionExists
	}

	log.Info("completion recorded",
		slog.Int64("user_id", record.UserID),
		slog.Int("snapshot_videos", len(record.Snapshot)))
	return nil
}

// GetByUser implements store.CompletionStore.GetByUser
func (s *PostgresCompletionStore) GetByUser(ctx context.Context, userID int64) (*domain.CompletionRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + completionColumns + ` FROM course_completions WHERE user_id = $1`

	record, err := scanCompletion(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCompletionNotFound
		}
		log.Error("failed to get completion",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID))
		return nil, store.NewStoreError("completion", "get", "query failed", MapError(err))
	}
	return record, nil
}

// MarkCertificateGenerated implements store.CompletionStore.MarkCertificateGenerated
func (s *PostgresCompletionStore) MarkCertificateGenerated(
	ctx context.Context,
	userID int64,
	certificateID, certificateURL string,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE course_completions
		SET certificate_generated = TRUE,
			certificate_id = $2,
			certificate_url = $3,
			updated_at = $4
		WHERE user_id = $1 AND certificate_generated = FALSE
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		userID,
		nullString(certificateID),
		nullString(certificateURL),
		s.now().UTC(),
	)
	if err != nil {
		log.Error("failed to mark certificate generated",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID))
		return false, store.NewStoreError("completion", "mark_certificate", "update failed", MapError(err))
	}

	if err := CheckRowsAffected(result, "completion"); err == nil {
		log.Info("certificate marked generated",
			slog.Int64("user_id", userID),
			slog.String("certificate_id", certificateID))
		return true, nil
	} else if !store.IsNotFoundError(err) {
		return false, store.NewStoreError("completion", "mark_certificate", "failed to get rows affected", err)
	}

	// Either the flag was already set or there is no record at all.
	var exists bool
	err = s.db.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM course_completions WHERE user_id = $1)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, store.NewStoreError("completion", "mark_certificate", "existence check failed", MapError(err))
	}
	if !exists {
		return false, store.ErrCompletionNotFound
	}
	return false, nil
}

// ListPendingCertification implements store.CompletionStore.ListPendingCertification
func (s *PostgresCompletionStore) ListPendingCertification(
	ctx context.Context,
	limit int,
) ([]domain.CompletionRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		return []domain.CompletionRecord{}, nil
	}

	query := `SELECT ` + completionColumns + `
		FROM course_completions
		WHERE confirmed = TRUE AND certificate_generated = FALSE
		ORDER BY completed_at, user_id
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		log.Error("failed to list pending certifications", slog.String("error", err.Error()))
		return nil, store.NewStoreError("completion", "list_pending", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	records := make([]domain.CompletionRecord, 0)
	for rows.Next() {
		record, err := scanCompletion(rows)
		if err != nil {
			return nil, store.NewStoreError("completion", "list_pending", "scan failed", MapError(err))
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("completion", "list_pending", "iteration failed", MapError(err))
	}
	return records, nil
}

func scanCompletion(row rowScanner) (*domain.CompletionRecord, error) {
	var (
		r              domain.CompletionRecord
		snapshot       []byte
		certificateID  sql.NullString
		certificateURL sql.NullString
	)
	if err := row.Scan(
		&r.UserID,
		&r.CompletedAt,
		&snapshot,
		&r.Confirmed,
		&r.CertificateGenerated,
		&certificateID,
		&certificateURL,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.Snapshot = []domain.VideoSnapshot{}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &r.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode completion snapshot: %w", err)
		}
	}
	r.CertificateID = certificateID.String
	r.CertificateURL = certificateURL.String
	r.CompletedAt = r.CompletedAt.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
