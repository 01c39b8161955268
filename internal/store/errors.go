package store

import "errors"

// Sentinel errors returned by repository methods. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrItemNotFound is returned when a query targets an item that does
	// not exist in the local collection.
	ErrItemNotFound = errors.New("item not found")

	// ErrStoreFull is returned when the local database cannot accept
	// further writes because the disk is full. Fatal for the write;
	// surfaced to the domain layer.
	ErrStoreFull = errors.New("local store is full")

	// ErrNoDeviceIdentity is returned before a device id has been
	// assigned and persisted on first run.
	ErrNoDeviceIdentity = errors.New("no device identity stored")

	// ErrObjectNotFound is returned by the server-side object repository
	// when a path does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrTokenMismatch is returned when a conditional write's expected
	// version token does not match the stored one, meaning another device
	// modified the object since the caller last observed it.
	ErrTokenMismatch = errors.New("object version token mismatch")

	// ErrDeviceExists is returned when registering a device id that is
	// already taken.
	ErrDeviceExists = errors.New("device already exists")

	// ErrDeviceNotFound is returned when a login references an unknown
	// device id.
	ErrDeviceNotFound = errors.New("device not found")
)

// Low-level database operation errors, wrapped by repository methods when a
// SQL-level operation fails before any domain logic applies.
var (
	ErrBuildingSQLQuery = errors.New("error building sql query")
	ErrExecutingQuery   = errors.New("error executing sql query")
	ErrScanningRow      = errors.New("failed to scan row")
)
