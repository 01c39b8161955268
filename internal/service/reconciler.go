// SPDX-License-Identifier: Apache-2.0

// Package service contains the sync engine: the reconciler that drives
// full passes against the remote object store, the debounced task queue,
// the tombstone registry, conflict detection and resolution, and the
// remote-change poller. The [Engine] facade ties them together behind the
// surface the presentation layer calls.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/remote"
	"github.com/asavelyev/notesync/internal/store"
	"github.com/asavelyev/notesync/internal/utils"
	"github.com/asavelyev/notesync/models"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// reconciler owns one device's view of the shared record space and brings
// it into agreement with the remote object store, one item at a time.
type reconciler struct {
	localStore store.LocalStorage
	objects    remote.ObjectStore
	tombstones *TombstoneRegistry
	detector   *ConflictDetector
	logger     *logger.Logger

	deviceID     string
	pushAttempts int
	notify       func(models.SyncEvent)
}

// NewReconciler wires a reconciler for the given device. notify may be nil
// when no listener cares about lifecycle events.
func NewReconciler(
	localStore store.LocalStorage,
	objects remote.ObjectStore,
	tombstones *TombstoneRegistry,
	detector *ConflictDetector,
	cfg config.Sync,
	deviceID string,
	log *logger.Logger,
	notify func(models.SyncEvent),
) *reconciler {
	attempts := cfg.MaxPushAttempts
	if attempts <= 0 {
		attempts = config.DefaultMaxPushAttempts
	}
	if notify == nil {
		notify = func(models.SyncEvent) {}
	}
	return &reconciler{
		localStore:   localStore,
		objects:      objects,
		tombstones:   tombstones,
		detector:     detector,
		logger:       log,
		deviceID:     deviceID,
		pushAttempts: attempts,
		notify:       notify,
	}
}

// FullSync runs one reconciliation pass over every collection the scope
// covers. Collections are independent: a failure in one is recorded and the
// pass moves on to the next. The pass as a whole fails only on errors that
// poison everything (missing credential, tombstone refresh failure).
func (r *reconciler) FullSync(ctx context.Context, scope models.SyncScope) error {
	if err := r.checkCredential(); err != nil {
		return err
	}

	r.notify(models.SyncEvent{Kind: models.EventSyncStarted, Scopes: []models.SyncScope{scope}})

	if err := r.tombstones.Refresh(ctx); err != nil {
		r.notify(models.SyncEvent{Kind: models.EventSyncFailed, Scopes: []models.SyncScope{scope}, Err: err})
		return fmt.Errorf("refresh tombstones: %w", err)
	}
	if err := r.tombstones.GC(ctx); err != nil {
		// Retention cleanup is housekeeping; a failed GC never blocks sync.
		r.logger.Warn().Err(err).Msg("tombstone gc failed")
	}
	if swept, err := r.localStore.Sweep(ctx, r.tombstones.DeletedIDs()); err != nil {
		r.logger.Err(err).Msg("sweep of tombstoned items failed")
	} else if swept > 0 {
		r.logger.Info().Int("count", swept).Msg("swept tombstoned items from local store")
	}

	var (
		firstErr error
		pushed   int
	)
	for _, t := range scope.Types() {
		n, err := r.syncCollection(ctx, t)
		pushed += n
		if err != nil {
			r.logger.Err(err).Str("type", string(t)).Msg("collection sync failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("sync %s: %w", t, err)
			}
		}
	}

	if pushed > 0 {
		if err := r.publishStatus(ctx, scope); err != nil {
			// Best effort: the next poll tick will still converge.
			r.logger.Warn().Err(err).Msg("failed to publish status marker")
		}
	}

	if firstErr != nil {
		r.notify(models.SyncEvent{Kind: models.EventSyncFailed, Scopes: []models.SyncScope{scope}, Err: firstErr})
		return firstErr
	}
	r.notify(models.SyncEvent{Kind: models.EventSyncCompleted, Scopes: []models.SyncScope{scope}})
	return nil
}

// checkCredential fails fast before a pass when the store carries a bearer
// token that is missing or already expired, instead of surfacing a wall of
// 401s mid-pass.
func (r *reconciler) checkCredential() error {
	auth, ok := r.objects.(remote.Authenticated)
	if !ok {
		return nil
	}
	token := auth.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	if utils.TokenExpired(token) {
		return fmt.Errorf("bearer token expired: %w", ErrNotAuthenticated)
	}
	return nil
}

// syncCollection reconciles one collection and returns how many items were
// pushed to the remote.
func (r *reconciler) syncCollection(ctx context.Context, t models.ItemType) (int, error) {
	log := r.logger.With().Str("type", string(t)).Logger()

	remoteItems, err := r.fetchRemote(ctx, t)
	if err != nil {
		return 0, err
	}

	// Planning only needs descriptors; full payloads are loaded below for
	// just the ids the plan decides to push or treat as conflicts.
	localStates, err := r.localStore.States(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("load local item states: %w", err)
	}

	plan, err := buildPlan(ctx, localStates, remoteItems, r.tombstones.IsDeleted)
	if err != nil {
		return 0, err
	}
	if plan.Empty() {
		log.Debug().Int("skipped", plan.Skipped).Msg("collection already in sync")
		return 0, nil
	}

	if len(plan.Pull) > 0 {
		if err = r.localStore.Save(ctx, plan.Pull...); err != nil {
			if errors.Is(err, store.ErrStoreFull) {
				return 0, err
			}
			log.Err(err).Msg("failed to save pulled items")
		} else {
			r.recordAgreement(ctx, plan.Pull)
		}
	}

	conflicts := make([]models.ConflictPair, 0, len(plan.Conflicts))
	for _, cand := range plan.Conflicts {
		item, ok := r.loadLocal(ctx, t, cand.LocalState.ID, &log)
		if !ok {
			continue
		}
		conflicts = append(conflicts, models.ConflictPair{
			Local:       item,
			Remote:      cand.Remote,
			RemoteToken: cand.RemoteToken,
		})
	}

	pushedItems := make([]models.Item, 0, len(plan.Push))
	for _, st := range plan.Push {
		item, ok := r.loadLocal(ctx, t, st.ID, &log)
		if !ok {
			continue
		}
		conflict, pushErr := r.pushItem(ctx, item)
		if pushErr != nil {
			// One stuck item must not starve the rest of the collection.
			log.Err(pushErr).Str("item_id", item.ID).Msg("push failed, skipping item")
			continue
		}
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
			continue
		}
		pushedItems = append(pushedItems, item)
	}
	pushed := len(pushedItems)
	if pushed > 0 {
		r.recordAgreement(ctx, pushedItems)
	}

	if len(conflicts) > 0 {
		if err = r.detector.Process(ctx, conflicts); err != nil {
			log.Err(err).Msg("conflict detection failed")
		}
	}

	log.Info().
		Int("pulled", len(plan.Pull)).
		Int("pushed", pushed).
		Int("conflicts", len(conflicts)).
		Int("skipped", plan.Skipped).
		Msg("collection reconciled")
	return pushed, nil
}

// loadLocal fetches the full local item behind a plan descriptor. An item
// deleted between planning and loading is logged and dropped from the
// pass; the next pass re-plans without it.
func (r *reconciler) loadLocal(ctx context.Context, t models.ItemType, id string, log *zerolog.Logger) (models.Item, bool) {
	item, err := r.localStore.Get(ctx, t, id)
	if err != nil {
		log.Err(err).Str("item_id", id).Msg("failed to load planned item, skipping")
		return models.Item{}, false
	}
	return item, true
}

// fetchRemote lists one collection directory and fetches every object in
// it. Objects that fail to decode are logged and skipped; the rest of the
// collection still syncs.
func (r *reconciler) fetchRemote(ctx context.Context, t models.ItemType) (map[string]remoteItem, error) {
	entries, err := r.objects.List(ctx, remote.ItemDir(t))
	if err != nil {
		return nil, fmt.Errorf("list remote collection: %w", err)
	}

	items := make(map[string]remoteItem, len(entries))
	for _, entry := range entries {
		content, token, err := r.objects.Get(ctx, entry.Path)
		if err != nil {
			if errors.Is(err, remote.ErrNotFound) {
				// Deleted between List and Get. The next pass settles it.
				continue
			}
			return nil, fmt.Errorf("fetch %s: %w", entry.Path, err)
		}

		item, err := remote.DecodeItem(content)
		if err != nil {
			r.logger.Warn().Err(err).Str("path", entry.Path).Msg("skipping malformed remote object")
			continue
		}
		items[item.ID] = remoteItem{item: item, token: token}
	}
	return items, nil
}

// pushItem writes one local item to the remote under its version token.
// On a token mismatch the remote is re-read and the decision re-made: a
// losing re-decision adopts the remote copy instead of erroring, a new
// same-generation divergence is returned as a conflict pair, and a still
// winning local copy retries the write under the fresh token.
func (r *reconciler) pushItem(ctx context.Context, item models.Item) (*models.ConflictPair, error) {
	path := remote.ItemPath(item.Type, item.ID)

	content, err := remote.EncodeItem(item)
	if err != nil {
		return nil, fmt.Errorf("encode item %s: %w", item.ID, err)
	}

	// First write attempt under the token observed during planning, or
	// no token at all when the item is new to the remote.
	_, token, err := r.currentToken(ctx, path)
	if err != nil {
		return nil, err
	}

	var conflict *models.ConflictPair
	backoff := retry.WithMaxRetries(uint64(r.pushAttempts-1), retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, putErr := r.objects.Put(ctx, path, content, token)
		if putErr == nil {
			return nil
		}
		if !errors.Is(putErr, remote.ErrTokenMismatch) {
			return putErr
		}

		// Someone wrote concurrently. Re-read and re-decide.
		freshContent, freshToken, getErr := r.objects.Get(ctx, path)
		if getErr != nil && !errors.Is(getErr, remote.ErrNotFound) {
			return getErr
		}
		if errors.Is(getErr, remote.ErrNotFound) {
			token = ""
			return retry.RetryableError(putErr)
		}

		freshItem, decErr := remote.DecodeItem(freshContent)
		if decErr != nil {
			return decErr
		}

		localState, remoteState := item.State(), freshItem.State()
		switch decide(&localState, &remoteState) {
		case decidePull:
			// Lost the race: the remote copy is strictly newer. Adopt it.
			if saveErr := r.localStore.Save(ctx, freshItem); saveErr != nil {
				return saveErr
			}
			return nil
		case decideConflict:
			conflict = &models.ConflictPair{Local: item, Remote: freshItem, RemoteToken: freshToken}
			return nil
		case decideSkip:
			return nil
		default:
			token = freshToken
			return retry.RetryableError(putErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("push item %s: %w", item.ID, err)
	}
	return conflict, nil
}

// currentToken returns the remote object's current version token, or ""
// when the path does not exist yet.
func (r *reconciler) currentToken(ctx context.Context, path string) ([]byte, string, error) {
	content, token, err := r.objects.Get(ctx, path)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return content, token, nil
}

// recordAgreement persists last-agreed generations after a successful push
// or pull. Purely diagnostic; failures are logged and forgotten.
func (r *reconciler) recordAgreement(ctx context.Context, items []models.Item) {
	now := time.Now().UnixMilli()
	states := make([]models.AgreedState, 0, len(items))
	for _, item := range items {
		states = append(states, models.AgreedState{
			ItemID:     item.ID,
			Type:       item.Type,
			Generation: item.Generation,
			MutatedAt:  item.MutatedAt,
			AgreedAt:   now,
		})
	}
	if err := r.localStore.RecordAgreement(ctx, states...); err != nil {
		r.logger.Warn().Err(err).Msg("failed to record agreed state")
	}
}

// publishStatus rewrites the shared status marker after a push-bearing
// pass so other devices' pollers notice the change. Read-modify-write
// under the marker's token; a mismatch means another device just published
// and its marker is at least as fresh, so losing the race is fine.
func (r *reconciler) publishStatus(ctx context.Context, scope models.SyncScope) error {
	marker := models.StatusMarker{
		LastChangeAt:  time.Now().UnixMilli(),
		LastDevice:    r.deviceID,
		ChangedScopes: []models.SyncScope{scope},
	}
	content, err := remote.EncodeStatus(marker)
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(uint64(r.pushAttempts-1), retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, token, err := r.currentToken(ctx, remote.StatusPath)
		if err != nil {
			return err
		}
		if _, err = r.objects.Put(ctx, remote.StatusPath, content, token); err != nil {
			if errors.Is(err, remote.ErrTokenMismatch) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}
