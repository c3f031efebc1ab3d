package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	// pgx driver
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"

	"github.com/learnwell/microlearn-api/internal/platform/postgres"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 10 * time.Second

// migrateOnce applies migrations at most once per test binary.
var (
	migrateOnce sync.Once
	migrateErr  error
)

// DatabaseURL returns the URL integration tests connect to.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// GetTestDB opens a connection to the test database with all migrations
// applied, skipping the test when DATABASE_URL is unset. The connection is
// closed when the test finishes.
func GetTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := DatabaseURL()
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping database test")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "failed to reach test database")

	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(ctx, db, nil)
	})
	require.NoError(t, migrateErr, "failed to apply migrations")

	return db
}

// WithTx executes a test function within a transaction, automatically rolling back
// after the test completes. This ensures test isolation and prevents side effects.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		err := tx.Rollback()
		// sql.ErrTxDone is expected if tx is already committed or rolled back
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// CleanupUser deletes every row the engine stores for userID. Tests that
// cannot run inside a single transaction, such as concurrency tests, use a
// dedicated user ID and register this with t.Cleanup.
func CleanupUser(t *testing.T, db *sql.DB, userID int64) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	for _, q := range []string{
		"DELETE FROM video_progress WHERE user_id = $1",
		"DELETE FROM course_completions WHERE user_id = $1",
		"DELETE FROM applications WHERE user_id = $1",
	} {
		if _, err := db.ExecContext(ctx, q, userID); err != nil {
			t.Logf("warning: cleanup for user %d failed: %v", userID, err)
		}
	}
}
