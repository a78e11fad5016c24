// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package: question
// responses and spaced-repetition review states keyed by (user, question).
// It also owns the embedded goose migrations that create the schema.
package postgres
