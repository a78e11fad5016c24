package store

import (
	"context"
	"time"
)

// BlobStore is a namespaced key-value cache of opaque blobs.
// It backs the local copy of an anonymous session's data: each client session
// gets its own namespace and stores JSON documents under fixed keys.
type BlobStore interface {
	// Get returns the blob stored under namespace and key.
	// Returns ErrBlobNotFound if nothing is stored there.
	Get(ctx context.Context, namespace, key string) ([]byte, error)

	// Set stores value under namespace and key, replacing any previous value.
	Set(ctx context.Context, namespace, key string, value []byte) error

	// DeleteNamespace removes every blob in the namespace.
	DeleteNamespace(ctx context.Context, namespace string) error

	// PurgeOlderThan removes blobs last written before cutoff and returns how many were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
