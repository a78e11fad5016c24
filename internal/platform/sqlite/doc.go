// Package sqlite implements store.BlobStore on an embedded SQLite database.
// It holds the local copy of each anonymous session's answers.
package sqlite
