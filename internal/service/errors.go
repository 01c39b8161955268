package service

import "errors"

var (
	// ErrNotAuthenticated is returned when a pass is requested without a
	// usable bearer credential. Never retried: the device must log in
	// again before sync can proceed.
	ErrNotAuthenticated = errors.New("device is not authenticated")

	// ErrMergedPayloadRequired is returned by Resolve when the merged
	// choice is selected without providing the merged payload.
	ErrMergedPayloadRequired = errors.New("merged choice requires a merged payload")

	// ErrUnknownConflictChoice is returned for a choice outside a/b/merged.
	ErrUnknownConflictChoice = errors.New("unknown conflict choice")

	// ErrQueueStopped is returned on futures of tasks that were still
	// pending when the queue shut down.
	ErrQueueStopped = errors.New("sync queue stopped")

	// ErrInvalidItemType is returned by engine operations referencing a
	// collection outside note/list/event.
	ErrInvalidItemType = errors.New("invalid item type")
)
