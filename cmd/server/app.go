package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/learnwell/microlearn-api/internal/api"
	"github.com/learnwell/microlearn-api/internal/config"
	"github.com/learnwell/microlearn-api/internal/domain"
	"github.com/learnwell/microlearn-api/internal/events"
	"github.com/learnwell/microlearn-api/internal/platform/certauthority"
	"github.com/learnwell/microlearn-api/internal/platform/memory"
	"github.com/learnwell/microlearn-api/internal/platform/postgres"
	"github.com/learnwell/microlearn-api/internal/platform/redis"
	"github.com/learnwell/microlearn-api/internal/redact"
	"github.com/learnwell/microlearn-api/internal/service/auth"
	"github.com/learnwell/microlearn-api/internal/service/certification"
	"github.com/learnwell/microlearn-api/internal/service/learning"
	"github.com/learnwell/microlearn-api/internal/store"
	"github.com/learnwell/microlearn-api/internal/task"
)

// directory answers both the application-status and profile lookups.
type directory interface {
	learning.ApplicationStatusProvider
	certification.UserProfileProvider
}

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Connections; nil when the selected store driver does not use them.
	db          *sql.DB
	redisClient goredis.UniversalClient

	progressStore   store.ProgressStore
	completionStore store.CompletionStore
	directory       directory

	jwtService      auth.JWTService
	submitter       certification.Submitter
	learningService learning.Service

	eventEmitter *events.InMemoryEventEmitter
	taskQueue    *task.TaskQueue
	workerPool   *task.WorkerPool
	sweeper      *task.Sweeper

	healthChecks map[string]api.HealthCheck
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config:       cfg,
		logger:       logger,
		healthChecks: make(map[string]api.HealthCheck),
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	if err := app.setupStores(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	authority := certauthority.NewClient(cfg.Certification, logger)
	app.submitter = certification.NewSubmitter(
		authority,
		app.directory,
		app.completionStore,
		cfg.Certification.Timeout,
		logger,
	)
	if !authority.Configured() {
		logger.Warn("certification authority not configured, completions will not be certified")
	}

	app.setupTasks()

	app.learningService = learning.NewService(learning.Config{
		RequiredVideoIDs:   cfg.Learning.RequiredVideoIDs,
		FirstFreeVideoID:   cfg.Learning.FirstFreeVideoID,
		StoreTimeout:       cfg.Learning.StoreTimeout,
		AsyncCertification: cfg.Certification.Async,
	}, app.progressStore, app.completionStore, app.directory, app.submitter, app.eventEmitter, logger)

	logger.Info("application initialized",
		slog.Int("required_videos", len(cfg.Learning.RequiredVideoIDs)),
		slog.String("first_free_video_id", cfg.Learning.FirstFreeVideoID))
	return app, nil
}

// newMemoryDirectory builds the in-memory directory from its configured seed.
func newMemoryDirectory(cfg config.MemoryDirectoryConfig) *memory.Directory {
	dir := memory.NewDirectory()
	for _, id := range cfg.ApprovedUserIDs {
		dir.SetApproved(id, true)
	}
	for _, p := range cfg.Profiles {
		dir.SetProfile(domain.UserProfile{
			UserID:          p.UserID,
			DisplayName:     p.DisplayName,
			EmailOrUsername: p.EmailOrUsername,
		})
	}
	return dir
}

// setupStores connects the backends for the configured store driver.
// Completion records and the user directory live in Postgres for both the
// postgres and redis drivers; only progress records move to Redis.
func (app *application) setupStores(ctx context.Context) error {
	cfg := app.config

	if cfg.Store.Driver == config.StoreDriverMemory {
		app.progressStore = memory.NewProgressStore(app.logger)
		app.completionStore = memory.NewCompletionStore(app.logger)
		app.directory = newMemoryDirectory(cfg.Store.Memory)
		app.logger.Warn("using in-memory stores, data is lost on restart",
			slog.Int("approved_users", len(cfg.Store.Memory.ApprovedUserIDs)),
			slog.Int("profiles", len(cfg.Store.Memory.Profiles)))
		return nil
	}

	db, err := openDatabase(ctx, cfg.Database, app.logger)
	if err != nil {
		return err
	}
	app.db = db
	app.healthChecks["postgres"] = db.PingContext

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, db, app.logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	app.completionStore = postgres.NewPostgresCompletionStore(db, app.logger)
	app.directory = postgres.NewPostgresDirectory(db, app.logger)

	switch cfg.Store.Driver {
	case config.StoreDriverRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.redisClient = client
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		app.healthChecks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		app.progressStore = redis.NewProgressStore(client, cfg.Redis.KeyPrefix, app.logger)
		app.logger.Info("redis progress store connected", slog.Int("db", cfg.Redis.DB))
	default:
		app.progressStore = postgres.NewPostgresProgressStore(db, app.logger)
	}

	return nil
}

// setupTasks builds the background certification pipeline: completion
// events become tasks on the queue, and the optional sweep re-queues
// completions whose certificate was never generated.
func (app *application) setupTasks() {
	cfg := app.config

	app.taskQueue = task.NewTaskQueue(cfg.Task.QueueSize, app.logger)
	app.workerPool = task.NewWorkerPool(app.taskQueue, task.WorkerPoolConfig{
		WorkerCount: cfg.Task.WorkerCount,
	}, app.logger)
	app.workerPool.SetErrorHandler(app.onTaskFailed)

	factory := task.NewCertificationTaskFactory(app.completionStore, app.submitter, app.logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(app.logger)
	app.eventEmitter.RegisterHandler(task.NewCompletionEventHandler(factory, app.taskQueue, app.logger))

	app.sweeper = task.NewSweeper(
		app.completionStore,
		factory,
		app.taskQueue,
		cfg.Certification.SweepBatchSize,
		cfg.Learning.StoreTimeout,
		app.logger,
	)
}

// onTaskFailed reports a background certification that did not produce a
// certificate. The completion record stays uncertified, so only a scheduled
// sweep will submit it again.
func (app *application) onTaskFailed(t task.Task, err error) {
	attrs := []any{
		slog.String("task_id", t.ID().String()),
		slog.String("task_type", t.Type()),
		slog.String("error", redact.Error(err)),
		slog.Bool("sweep_scheduled", app.config.Certification.SweepSchedule != ""),
	}
	if ct, ok := t.(*task.CertificationTask); ok {
		attrs = append(attrs, slog.Int64("user_id", ct.UserID()))
	}
	app.logger.Warn("certification left pending", attrs...)
}

// startBackground starts the worker pool and, when scheduled, the sweep.
func (app *application) startBackground() error {
	app.workerPool.Start()

	schedule := app.config.Certification.SweepSchedule
	if schedule == "" || !app.config.Certification.Configured() {
		return nil
	}
	if err := app.sweeper.Start(schedule); err != nil {
		return fmt.Errorf("failed to start certification sweep: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if app.sweeper != nil {
		app.sweeper.Stop(ctx)
	}
	if app.taskQueue != nil {
		app.taskQueue.Close()
	}
	if app.workerPool != nil {
		app.workerPool.Stop()
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", slog.String("error", redact.Error(err)))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", redact.Error(err)))
		}
	}

	app.logger.Info("application shutdown completed")
}
