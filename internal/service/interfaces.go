package service

import (
	"context"

	"github.com/asavelyev/notesync/models"
)

// SyncRunner executes one full reconciliation pass over the given scope.
// Implemented by the reconciler; consumed by the queue and the poller so
// both can be tested against a spy.
type SyncRunner interface {
	FullSync(ctx context.Context, scope models.SyncScope) error
}

// Queue accepts reconciliation requests and dispatches them one at a time,
// debounced and strictly FIFO.
type Queue interface {
	// Enqueue registers a sync task for the scope and returns a future
	// resolved when the task's pass finishes. Tasks coalesce within the
	// debounce window: a pending task whose scope covers the new one
	// absorbs it and both futures resolve together.
	Enqueue(scope models.SyncScope) <-chan error

	// ForceSyncNow enqueues a full-scope task and dispatches immediately,
	// bypassing the debounce window but not the single-flight lock.
	ForceSyncNow() <-chan error

	// SetOnline toggles dispatch. While offline, tasks accumulate; going
	// online drains everything accumulated.
	SetOnline(online bool)

	// Stop cancels pending dispatch and waits for an in-flight pass.
	Stop()
}

// Resolver applies a human's decision to a pending conflict report.
type Resolver interface {
	// Resolve writes the chosen content as a new generation, retires the
	// remote report object, and returns the winning item. A merged choice
	// requires the caller-built payload.
	Resolve(ctx context.Context, report models.ConflictReport, choice models.ConflictChoice, merged *models.Payload) (models.Item, error)
}
