package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/platform/logger"
	"github.com/learnwell/microlearn-api/internal/store"
)

// ApplicationStatusApproved is the applications.status value granting full access.
const ApplicationStatusApproved = "approved"

// PostgresDirectory reads user and application data owned by the surrounding
// platform. It never writes to those tables.
type PostgresDirectory struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDirectory creates a directory reader backed by PostgreSQL.
// If logger is nil, a default logger will be used.
func NewPostgresDirectory(db store.DBTX, logger *slog.Logger) *PostgresDirectory {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresDirectory{
		db:     db,
		logger: logger.With(slog.String("component", "directory")),
	}
}

// HasApprovedApplication reports whether the user has at least one approved application.
func (d *PostgresDirectory) HasApprovedApplication(ctx context.Context, userID int64) (bool, error) {
	log := logger.FromContextOrDefault(ctx, d.logger)

	var approved bool
	err := d.db.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE user_id = $1 AND status = $2)`,
		userID,
		ApplicationStatusApproved,
	).Scan(&approved)
	if err != nil {
		log.Error("failed to check application status",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID))
		return false, store.NewStoreError("application", "get_status", "query failed", MapError(err))
	}
	return approved, nil
}

// GetUserProfile loads the details sent with a certification request.
// Returns store.ErrProfileNotFound if the user does not exist.
func (d *PostgresDirectory) GetUserProfile(ctx context.Context, userID int64) (domain.UserProfile, error) {
	log := logger.FromContextOrDefault(ctx, d.logger)

	var (
		displayName sql.NullString
		email       sql.NullString
		username    sql.NullString
	)
	err := d.db.QueryRowContext(
		ctx,
		`SELECT display_name, email, username FROM users WHERE id = $1`,
		userID,
	).Scan(&displayName, &email, &username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UserProfile{}, store.ErrProfileNotFound
		}
		log.Error("failed to load user profile",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID))
		return domain.UserProfile{}, store.NewStoreError("user", "get_profile", "query failed", MapError(err))
	}

	profile := domain.UserProfile{
		UserID:          userID,
		DisplayName:     displayName.String,
		EmailOrUsername: email.String,
	}
	if profile.EmailOrUsername == "" {
		profile.EmailOrUsername = username.String
	}
	return profile, nil
}
