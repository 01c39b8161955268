package models

// EventKind names the sync lifecycle notifications exposed to the
// presentation layer.
type EventKind string

const (
	EventSyncStarted       EventKind = "sync-started"
	EventSyncCompleted     EventKind = "sync-completed"
	EventSyncFailed        EventKind = "sync-failed"
	EventConflictsDetected EventKind = "conflicts-detected"
)

// SyncEvent is delivered to subscribed listeners. Scopes is set for
// completed and failed events, Err only for failures, ConflictCount only
// for conflicts-detected.
type SyncEvent struct {
	Kind          EventKind
	Scopes        []SyncScope
	Err           error
	ConflictCount int
}
