package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/qbank-api/internal/auth"
	"github.com/phrazzld/qbank-api/internal/config"
	"github.com/phrazzld/qbank-api/internal/domain/srs"
	"github.com/phrazzld/qbank-api/internal/ledger"
	"github.com/phrazzld/qbank-api/internal/platform/postgres"
	"github.com/phrazzld/qbank-api/internal/platform/sqlite"
	"github.com/phrazzld/qbank-api/internal/service/review"
	"github.com/phrazzld/qbank-api/internal/session"
	"github.com/phrazzld/qbank-api/internal/store"
	"github.com/phrazzld/qbank-api/internal/task"
)

const cleanupTimeout = 15 * time.Second

// application holds the shared dependencies so they can be wired once and
// released in order on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	blobs  *sqlite.BlobStore

	responseStore    store.ResponseStore
	reviewStateStore store.ReviewStateStore

	jwtService    *auth.JWTService
	srsService    srs.Service
	reviewService review.ReviewService

	taskQueue  *task.TaskQueue
	workerPool *task.WorkerPool

	sessions *session.Registry
}

// newApplication wires stores, services, the background worker pool and the
// session registry. db must already be connected.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.blobs, err = sqlite.Open(cfg.Cache.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}
	if err := app.blobs.Ping(ctx); err != nil {
		_ = app.blobs.Close()
		return nil, fmt.Errorf("local cache unreachable: %w", err)
	}

	app.responseStore = postgres.NewPostgresResponseStore(db, logger)
	app.reviewStateStore = postgres.NewPostgresReviewStateStore(db, logger)

	app.srsService = srs.NewServiceWithParams(srsParams(cfg.SRS))
	app.reviewService = review.NewReviewService(app.reviewStateStore, db, app.srsService, logger, nil)

	app.taskQueue = task.NewTaskQueue(cfg.Task.QueueSize, logger)
	poolCfg := task.DefaultWorkerPoolConfig()
	poolCfg.WorkerCount = cfg.Task.WorkerCount
	app.workerPool = task.NewWorkerPool(app.taskQueue, poolCfg, logger)
	app.workerPool.SetErrorHandler(taskFailureHandler(logger))
	app.workerPool.Start()

	app.sessions = session.NewRegistry(session.Deps{
		Blobs:  app.blobs,
		Remote: ledger.NewRemoteFactory(app.responseStore, logger),
		Tasks:  app.taskQueue,
		Logger: logger,
	}, session.Config{
		IdleTimeout:     cfg.Cache.SessionIdle(),
		Retention:       cfg.Cache.Retention(),
		JanitorInterval: cfg.Cache.JanitorInterval(),
	})
	if err := app.sessions.Start(); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to start session janitor: %w", err)
	}

	logger.Info("application initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes),
		slog.Int("session_idle_minutes", cfg.Cache.SessionIdleMinutes))
	return app, nil
}

// taskFailureHandler reports failed background tasks. Remote response writes
// are skipped because the ledger already logs them with the question and user.
func taskFailureHandler(logger *slog.Logger) func(task.Task, error) {
	return func(t task.Task, err error) {
		if t.Type() == task.TaskTypeRemoteResponseWrite {
			return
		}
		logger.Warn("background task failed",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.String("error", err.Error()))
	}
}

// srsParams maps the scheduler settings onto algorithm parameters.
func srsParams(cfg config.SRSConfig) *srs.Params {
	return srs.NewParams(srs.ParamsConfig{
		MinEaseFactor:      cfg.MinEaseFactor,
		InitialEaseFactor:  cfg.InitialEaseFactor,
		FirstIntervalDays:  cfg.FirstIntervalDays,
		SecondIntervalDays: cfg.SecondIntervalDays,
		LapseIntervalDays:  cfg.LapseIntervalDays,
		MaxIntervalDays:    cfg.MaxIntervalDays,
	})
}

// Run serves HTTP until ctx is canceled or the listener fails.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup flushes session ledgers before the worker pool drains so the last
// remote writes still have somewhere to run, then closes storage.
func (app *application) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if app.sessions != nil {
		if err := app.sessions.Stop(ctx); err != nil {
			app.logger.Error("error stopping sessions", slog.String("error", err.Error()))
		}
	}
	if app.taskQueue != nil {
		app.taskQueue.Close()
	}
	if app.workerPool != nil {
		if err := app.workerPool.Shutdown(ctx); err != nil {
			app.logger.Error("worker pool did not drain", slog.String("error", err.Error()))
		}
	}
	if app.blobs != nil {
		if err := app.blobs.Close(); err != nil {
			app.logger.Error("error closing local cache", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
