package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/remote"
	"github.com/asavelyev/notesync/models"
	"github.com/sethvargo/go-retry"
)

// TombstoneRegistry caches the single shared deletion record object. The
// remote copy is authoritative; the cache is refreshed at the start of
// every pass and mutated through read-merge-write so that concurrent
// deleters on different devices never lose each other's entries.
type TombstoneRegistry struct {
	objects   remote.ObjectStore
	retention time.Duration
	logger    *logger.Logger

	mu     sync.RWMutex
	cached models.TombstoneSet
	token  string
}

func NewTombstoneRegistry(objects remote.ObjectStore, cfg config.Sync, log *logger.Logger) *TombstoneRegistry {
	retention := cfg.TombstoneRetention
	if retention <= 0 {
		retention = config.DefaultTombstoneRetention
	}
	return &TombstoneRegistry{
		objects:   objects,
		retention: retention,
		logger:    log,
		cached:    models.TombstoneSet{},
	}
}

// Refresh replaces the cached set with the remote copy. A remote store
// that has never seen a deletion yields an empty set.
func (t *TombstoneRegistry) Refresh(ctx context.Context) error {
	content, token, err := t.objects.Get(ctx, remote.TombstonesPath)
	if errors.Is(err, remote.ErrNotFound) {
		t.mu.Lock()
		t.cached = models.TombstoneSet{}
		t.token = ""
		t.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read tombstones: %w", err)
	}

	set, err := remote.DecodeTombstones(content)
	if err != nil {
		return fmt.Errorf("decode tombstones: %w", err)
	}

	t.mu.Lock()
	t.cached = set
	t.token = token
	t.mu.Unlock()
	return nil
}

// IsDeleted reports whether the item id carries a deletion record.
func (t *TombstoneRegistry) IsDeleted(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.cached[id]
	return ok
}

// DeletedIDs returns every tombstoned item id, for local sweeps.
func (t *TombstoneRegistry) DeletedIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.cached))
	for id := range t.cached {
		ids = append(ids, id)
	}
	return ids
}

// RecordDeletion adds a deletion record for id and publishes the updated
// set. On a token mismatch the remote set is re-read, merged (earliest
// deletion time wins per id), and the write retried.
func (t *TombstoneRegistry) RecordDeletion(ctx context.Context, id string) error {
	deletedAt := time.Now().UnixMilli()
	return t.rewrite(ctx, func(set models.TombstoneSet) models.TombstoneSet {
		return set.Merge(models.TombstoneSet{id: deletedAt})
	})
}

// GC drops tombstones older than the retention window. The remote object
// is rewritten only when something actually expired; by then every live
// device has long since swept its local copy.
func (t *TombstoneRegistry) GC(ctx context.Context) error {
	t.mu.RLock()
	expired := t.cached.Expired(t.retention, time.Now())
	t.mu.RUnlock()
	if len(expired) == 0 {
		return nil
	}

	t.logger.Info().Int("count", len(expired)).Msg("expiring aged tombstones")
	cutoff := time.Now().Add(-t.retention).UnixMilli()
	return t.rewrite(ctx, func(set models.TombstoneSet) models.TombstoneSet {
		for id, at := range set {
			if at < cutoff {
				delete(set, id)
			}
		}
		return set
	})
}

// rewrite applies mutate to the current set and writes the result under
// the observed version token, retrying the whole read-merge-write cycle
// on contention.
func (t *TombstoneRegistry) rewrite(ctx context.Context, mutate func(models.TombstoneSet) models.TombstoneSet) error {
	backoff := retry.WithMaxRetries(4, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		t.mu.RLock()
		set := t.cached.Clone()
		token := t.token
		t.mu.RUnlock()

		set = mutate(set)
		content, err := remote.EncodeTombstones(set)
		if err != nil {
			return err
		}

		newToken, err := t.objects.Put(ctx, remote.TombstonesPath, content, token)
		if err != nil {
			if errors.Is(err, remote.ErrTokenMismatch) {
				if refreshErr := t.refreshMerged(ctx); refreshErr != nil {
					return refreshErr
				}
				return retry.RetryableError(err)
			}
			return err
		}

		t.mu.Lock()
		t.cached = set
		t.token = newToken
		t.mu.Unlock()
		return nil
	})
	if err != nil {
		return fmt.Errorf("rewrite tombstones: %w", err)
	}
	return nil
}

// refreshMerged folds the remote set into the cache instead of replacing
// it, so a local deletion recorded between Refresh and a contended write
// survives the retry.
func (t *TombstoneRegistry) refreshMerged(ctx context.Context) error {
	content, token, err := t.objects.Get(ctx, remote.TombstonesPath)
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	set, err := remote.DecodeTombstones(content)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.cached = t.cached.Clone().Merge(set)
	t.token = token
	t.mu.Unlock()
	return nil
}
