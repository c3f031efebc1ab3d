package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Register the pgx driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/learnwell/microlearn-api/internal/config"
	"github.com/learnwell/microlearn-api/internal/platform/postgres"
	"github.com/learnwell/microlearn-api/internal/redact"
)

const dbPingTimeout = 5 * time.Second

// openDatabase opens the Postgres pool and verifies it with a ping.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("failed to close database after ping failure",
				slog.String("error", redact.Error(closeErr)))
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns))
	return db, nil
}

// runMigrations applies pending migrations for the -migrate flag.
func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logger.Info("memory store selected, no migrations to apply")
		return nil
	}

	db, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", slog.String("error", redact.Error(err)))
		}
	}()

	return postgres.Migrate(ctx, db, logger)
}
