package ledger

import "fmt"

// SyncState tracks the one-time reconciliation of a session.
type SyncState int

const (
	// SyncNotStarted means the session is anonymous or has not reconciled yet.
	SyncNotStarted SyncState = iota
	// SyncInProgress means a reconciliation pass is running.
	SyncInProgress
	// SyncDone means reconciliation ran, successfully or not.
	// It is not retried until the identity changes.
	SyncDone
)

func (s SyncState) String() string {
	switch s {
	case SyncNotStarted:
		return "not_started"
	case SyncInProgress:
		return "in_progress"
	case SyncDone:
		return "done"
	default:
		return fmt.Sprintf("sync_state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SyncState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
