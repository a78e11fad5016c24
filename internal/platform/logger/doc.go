// Package logger provides structured logging functionality for the application.
//
// It builds on log/slog: Setup configures the process-wide JSON (or text)
// handler, and the context helpers carry a request-scoped logger enriched
// with trace and session attributes through the call chain.
package logger
