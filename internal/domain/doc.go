// Package domain contains the core study entities of the question bank:
// the per-question answer record kept by the response ledger and the
// spaced-repetition state kept by the review scheduler. It is independent
// of any storage or delivery mechanism.
package domain
