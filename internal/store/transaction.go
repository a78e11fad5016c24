package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/qbank-api/internal/platform/logger"
)

// TxFn is a unit of work executed inside a database transaction.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction executes fn inside a transaction with default options.
// The transaction commits when fn returns nil and rolls back otherwise.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	return RunInTransactionWithOptions(ctx, db, nil, fn)
}

// RunInTransactionWithOptions executes fn inside a transaction opened with opts.
// A panic inside fn rolls the transaction back and is re-raised.
func RunInTransactionWithOptions(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFn) (err error) {
	log := logger.FromContextOrDefault(ctx, slog.Default()).With(slog.String("component", "store_tx"))

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		log.ErrorContext(ctx, "failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: begin: %w", ErrTransactionFailed, err)
	}

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.ErrorContext(ctx, "rollback after panic failed",
				slog.String("error", rbErr.Error()),
				slog.Any("panic", p))
		} else {
			log.ErrorContext(ctx, "rolled back transaction after panic", slog.Any("panic", p))
		}
		// ALLOW-PANIC: re-raise the caller's panic once the transaction is released
		panic(p)
	}()

	if fnErr := fn(ctx, tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.ErrorContext(ctx, "rollback failed",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", fnErr.Error()))
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, fnErr)
		}
		log.DebugContext(ctx, "rolled back transaction", slog.String("error", fnErr.Error()))
		return fnErr
	}

	if cErr := tx.Commit(); cErr != nil {
		log.ErrorContext(ctx, "failed to commit transaction", slog.String("error", cErr.Error()))
		return fmt.Errorf("%w: commit: %w", ErrTransactionFailed, cErr)
	}
	return nil
}
