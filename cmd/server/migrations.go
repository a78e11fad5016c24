package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/qbank-api/internal/platform/postgres"
)

// handleMigrations runs one goose command against db with a correlation ID
// on every log line of the run.
func handleMigrations(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	log := logger.With(slog.String("correlation_id", uuid.NewString()))
	start := time.Now()

	log.Info("starting migration", slog.String("command", command))
	if err := postgres.Migrate(ctx, db, command, log); err != nil {
		log.Error("migration failed",
			slog.String("command", command),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return fmt.Errorf("migration %q failed: %w", command, err)
	}

	log.Info("migration finished",
		slog.String("command", command),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}
