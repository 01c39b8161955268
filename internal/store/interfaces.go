package store

import (
	"context"

	"github.com/asavelyev/notesync/models"
)

// LocalItemStore is the durable per-device store of synchronized items,
// grouped into independent type-collections.
type LocalItemStore interface {
	// Save upserts the given items, replacing existing rows with the same
	// (type, id). Used both for local mutations and for batches pulled
	// from the remote.
	Save(ctx context.Context, items ...models.Item) error

	// Get returns the single item identified by (t, id).
	// Returns [ErrItemNotFound] if absent.
	Get(ctx context.Context, t models.ItemType, id string) (models.Item, error)

	// GetAll returns every item in collection t.
	GetAll(ctx context.Context, t models.ItemType) ([]models.Item, error)

	// States returns the lightweight per-item descriptors for collection t.
	States(ctx context.Context, t models.ItemType) ([]models.ItemState, error)

	// Delete removes the item from the local collection. Deleting a
	// missing item is not an error: the row is simply gone.
	Delete(ctx context.Context, t models.ItemType, id string) error

	// Sweep drops any locally-cached item whose id is in ids, across all
	// collections, and returns how many rows were removed. This is how
	// deletions reach devices that never issued them.
	Sweep(ctx context.Context, ids []string) (int, error)

	// MigrateLegacy assigns sync metadata (generation=1, mutatedAt=now,
	// origin=deviceID) to items stored before the sync engine existed and
	// rewrites them, so the migration never repeats. Returns the number of
	// migrated rows.
	MigrateLegacy(ctx context.Context, deviceID string) (int, error)

	// RecordAgreement stores the generation and timestamp at which items
	// last reached agreement with the remote. Diagnostic only.
	RecordAgreement(ctx context.Context, states ...models.AgreedState) error
}

// DeviceIdentity persists this installation's device id across restarts.
type DeviceIdentity interface {
	// DeviceID returns the stored identifier, or [ErrNoDeviceIdentity]
	// if none has been assigned yet.
	DeviceID(ctx context.Context) (string, error)

	// SetDeviceID stores the identifier. Called once on first run.
	SetDeviceID(ctx context.Context, id, label string) error
}

// LocalStorage is the full device-side persistence surface: the item store
// plus the persisted device identity.
type LocalStorage interface {
	LocalItemStore
	DeviceIdentity
}

// ObjectRepository is the server-side persistence contract behind the
// object-store HTTP API. Put and Delete implement single-object optimistic
// concurrency via version tokens.
type ObjectRepository interface {
	Get(ctx context.Context, path string) (content []byte, token string, err error)
	Put(ctx context.Context, path string, content []byte, expectedToken string) (newToken string, err error)
	List(ctx context.Context, dir string) ([]models.ObjectEntry, error)
	Delete(ctx context.Context, path string, expectedToken string) error
}

// DeviceRepository stores registered device accounts on the server.
type DeviceRepository interface {
	// Create registers a new device. Returns [ErrDeviceExists] when the
	// id is already taken.
	Create(ctx context.Context, device models.Device) (models.Device, error)

	// FindByID returns the device record, or [ErrDeviceNotFound].
	FindByID(ctx context.Context, deviceID string) (models.Device, error)
}
