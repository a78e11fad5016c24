// Package ledger keeps the record of what a user answered for each question.
//
// A Ledger belongs to one client session. Anonymous sessions read and write a
// local repository only. Once the session is authenticated, answers are also
// written to the remote repository in the background, and a one-time
// reconciliation uploads every local answer the remote store has never seen.
// After reconciliation, reads prefer the remote set whenever it is non-empty.
package ledger
