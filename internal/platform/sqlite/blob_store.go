package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/phrazzld/qbank-api/internal/platform/logger"
	"github.com/phrazzld/qbank-api/internal/store"
)

// MemoryPath opens a private in-process database.
const MemoryPath = ":memory:"

const schema = `
	CREATE TABLE IF NOT EXISTS local_blobs (
		namespace  TEXT    NOT NULL,
		key        TEXT    NOT NULL,
		value      BLOB    NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (namespace, key)
	);
	CREATE INDEX IF NOT EXISTS idx_local_blobs_updated_at ON local_blobs (updated_at);
`

// BlobStore implements store.BlobStore on SQLite.
type BlobStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// Ensure BlobStore implements store.BlobStore interface
var _ store.BlobStore = (*BlobStore)(nil)

// Open connects to the SQLite file at path, creating its directory and the
// schema when missing. Use MemoryPath for a throwaway cache.
func Open(path string, log *slog.Logger) (*BlobStore, error) {
	if log == nil {
		log = slog.Default()
	}

	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob cache: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps :memory: alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create blob cache schema: %w", err)
	}

	return &BlobStore{
		db:     db,
		logger: log.With(slog.String("component", "blob_store")),
		now:    time.Now,
	}, nil
}

// Close releases the database.
func (s *BlobStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *BlobStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get implements store.BlobStore.Get
func (s *BlobStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM local_blobs WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrBlobNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read blob",
			slog.String("error", err.Error()),
			slog.String("namespace", namespace),
			slog.String("key", key))
		return nil, store.NewStoreError("blob", "get", "read failed", err)
	}
	return value, nil
}

// Set implements store.BlobStore.Set
func (s *BlobStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_blobs (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		namespace, key, value, s.now().UnixMilli())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to write blob",
			slog.String("error", err.Error()),
			slog.String("namespace", namespace),
			slog.String("key", key))
		return store.NewStoreError("blob", "set", "write failed", err)
	}
	return nil
}

// DeleteNamespace implements store.BlobStore.DeleteNamespace
func (s *BlobStore) DeleteNamespace(ctx context.Context, namespace string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM local_blobs WHERE namespace = ?`, namespace); err != nil {
		return store.NewStoreError("blob", "delete", "namespace delete failed", err)
	}
	return nil
}

// PurgeOlderThan implements store.BlobStore.PurgeOlderThan
func (s *BlobStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM local_blobs WHERE updated_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, store.NewStoreError("blob", "purge", "purge failed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		logger.FromContextOrDefault(ctx, s.logger).Info("purged stale blobs",
			slog.Int64("count", n),
			slog.Time("cutoff", cutoff))
	}
	return n, nil
}
