package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/remote"
	"github.com/asavelyev/notesync/internal/store"
	"github.com/asavelyev/notesync/internal/utils"
	"github.com/asavelyev/notesync/internal/workers"
	"github.com/asavelyev/notesync/models"
)

// Engine is the device-facing facade over the sync machinery. All methods
// are safe for concurrent use; the UI layer calls them directly.
type Engine struct {
	localStore store.LocalStorage
	objects    remote.ObjectStore
	tombstones *TombstoneRegistry
	detector   *ConflictDetector
	resolver   Resolver
	queue      Queue
	poller     *Poller
	logger     *logger.Logger
	uuidGen    *utils.UUIDGenerator
	deviceID   string

	mu        sync.RWMutex
	runCtx    context.Context
	listeners []func(models.SyncEvent)
}

// NewEngine wires the full client-side engine: tombstone registry,
// conflict detector and resolver, reconciler, queue, and poller, all
// sharing the given stores.
func NewEngine(
	ctx context.Context,
	localStore store.LocalStorage,
	objects remote.ObjectStore,
	cfg config.Sync,
	deviceID string,
	log *logger.Logger,
) (*Engine, error) {
	e := &Engine{
		localStore: localStore,
		objects:    objects,
		logger:     log,
		uuidGen:    utils.NewUUIDGenerator(),
		deviceID:   deviceID,
	}

	e.tombstones = NewTombstoneRegistry(objects, cfg, log)
	e.detector = NewConflictDetector(localStore, objects, deviceID, log, e.publish)
	e.resolver = NewConflictResolver(localStore, objects, cfg, deviceID, log)

	runner := NewReconciler(localStore, objects, e.tombstones, e.detector, cfg, deviceID, log, e.publish)
	e.queue = NewSyncQueue(runner, cfg, log)
	e.poller = NewPoller(objects, e.queue, cfg, deviceID, log)

	// Items written before this device ever synced get sync metadata once.
	if migrated, err := localStore.MigrateLegacy(ctx, deviceID); err != nil {
		return nil, fmt.Errorf("migrate legacy items: %w", err)
	} else if migrated > 0 {
		log.Info().Int("count", migrated).Msg("assigned sync metadata to legacy items")
	}

	return e, nil
}

// Start launches the background jobs: the remote-change poller, plus an
// initial full sync so a device that was offline catches up immediately.
// The queue needs no explicit start.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.runCtx = ctx
	e.mu.Unlock()

	workers.NewWorkers(
		workers.WorkerFunc(func() { e.poller.Start(ctx) }),
		workers.WorkerFunc(func() { e.queue.Enqueue(models.ScopeAll) }),
	).Run()
}

// Stop shuts down the poller and the queue, waiting for any in-flight
// pass.
func (e *Engine) Stop() {
	e.poller.Stop()
	e.queue.Stop()
}

// MutateItem applies a local edit: the item's generation is bumped, its
// mutation metadata stamped with this device, the local store updated
// durably, and a sync task for the item's collection enqueued. The edit is
// safe the moment this returns; the enqueued task only propagates it.
func (e *Engine) MutateItem(ctx context.Context, t models.ItemType, id string, payload models.Payload) (models.Item, error) {
	if !t.Valid() {
		return models.Item{}, fmt.Errorf("%w: %q", ErrInvalidItemType, t)
	}
	if id == "" {
		id = e.uuidGen.Generate()
	}

	item, err := e.localStore.Get(ctx, t, id)
	if err != nil {
		if !errorsIsNotFound(err) {
			return models.Item{}, fmt.Errorf("load item %s: %w", id, err)
		}
		item = models.Item{ID: id, Type: t}
	}

	payload.Type = t
	item.Payload = payload
	item.Touch(e.deviceID)

	if err = e.localStore.Save(ctx, item); err != nil {
		return models.Item{}, fmt.Errorf("save item %s: %w", id, err)
	}

	e.queue.Enqueue(models.ScopeFor(t))
	return item, nil
}

// DeleteItem removes the item everywhere: a tombstone is recorded in the
// shared registry, the local row dropped, and a sync task enqueued so the
// remote object disappears too. Deletion is a hard delete; resurrection
// requires creating the item anew.
func (e *Engine) DeleteItem(ctx context.Context, t models.ItemType, id string) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidItemType, t)
	}

	if err := e.tombstones.RecordDeletion(ctx, id); err != nil {
		return fmt.Errorf("record deletion of %s: %w", id, err)
	}
	if err := e.localStore.Delete(ctx, t, id); err != nil {
		return fmt.Errorf("delete item %s locally: %w", id, err)
	}
	if err := e.objects.Delete(ctx, remote.ItemPath(t, id), ""); err != nil && !errorsIsNotFound(err) {
		// The tombstone is durable, so the next pass of any device will
		// finish the job.
		e.logger.Warn().Err(err).Str("item_id", id).Msg("remote delete deferred to next sync pass")
	}

	e.queue.Enqueue(models.ScopeFor(t))
	return nil
}

// GetItem reads one item from the local store.
func (e *Engine) GetItem(ctx context.Context, t models.ItemType, id string) (models.Item, error) {
	return e.localStore.Get(ctx, t, id)
}

// ListItems reads a full collection from the local store.
func (e *Engine) ListItems(ctx context.Context, t models.ItemType) ([]models.Item, error) {
	return e.localStore.GetAll(ctx, t)
}

// ListPendingConflicts returns every conflict still awaiting a decision.
func (e *Engine) ListPendingConflicts(ctx context.Context) ([]models.ConflictReport, error) {
	return e.detector.ListPending(ctx)
}

// ResolveConflict applies the user's decision to a pending report.
func (e *Engine) ResolveConflict(ctx context.Context, report models.ConflictReport, choice models.ConflictChoice, merged *models.Payload) (models.Item, error) {
	item, err := e.resolver.Resolve(ctx, report, choice, merged)
	if err != nil {
		return models.Item{}, err
	}
	e.queue.Enqueue(models.ScopeFor(item.Type))
	return item, nil
}

// NotifyEditing pauses background polling while the user types.
func (e *Engine) NotifyEditing() { e.poller.NotifyEditing() }

// NotifyEditingStopped resumes background polling.
func (e *Engine) NotifyEditingStopped() { e.poller.NotifyEditingStopped() }

// SetOnlineMode toggles sync dispatch. Local edits keep working offline;
// the queued tasks run when connectivity returns. Going offline also stops
// the poller, so no remote sampling happens without connectivity.
func (e *Engine) SetOnlineMode(online bool) {
	e.queue.SetOnline(online)

	e.mu.RLock()
	runCtx := e.runCtx
	e.mu.RUnlock()

	if !online {
		e.poller.Stop()
		return
	}
	if runCtx != nil {
		e.poller.Start(runCtx)
	}
}

// ForceSyncNow dispatches a full-scope pass immediately, bypassing the
// debounce window. The returned future resolves when the pass finishes.
func (e *Engine) ForceSyncNow() <-chan error { return e.queue.ForceSyncNow() }

// Subscribe registers a listener for sync lifecycle events. Listeners are
// invoked synchronously in publish order and must not block.
func (e *Engine) Subscribe(listener func(models.SyncEvent)) {
	e.mu.Lock()
	e.listeners = append(e.listeners, listener)
	e.mu.Unlock()
}

func (e *Engine) publish(event models.SyncEvent) {
	e.mu.RLock()
	listeners := make([]func(models.SyncEvent), len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, store.ErrItemNotFound) || errors.Is(err, remote.ErrNotFound)
}
