// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the ledger and scheduler, keeping the study logic independent of the
// relational store behind authenticated users and of the blob cache
// behind anonymous sessions.
package store
