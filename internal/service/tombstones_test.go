package service

import (
	"context"
	"testing"
	"time"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/remote"
	"github.com/asavelyev/notesync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(objects remote.ObjectStore) *TombstoneRegistry {
	return NewTombstoneRegistry(objects, fastSyncCfg(), logger.Nop())
}

func TestTombstones_RecordAndRefresh(t *testing.T) {
	ctx := context.Background()
	objects := remote.NewMemObjectStore()

	writer := newTestRegistry(objects)
	reader := newTestRegistry(objects)

	require.NoError(t, writer.Refresh(ctx))
	require.NoError(t, writer.RecordDeletion(ctx, "n1"))

	assert.True(t, writer.IsDeleted("n1"))
	assert.False(t, reader.IsDeleted("n1"), "unrefreshed registry must not see the deletion yet")

	require.NoError(t, reader.Refresh(ctx))
	assert.True(t, reader.IsDeleted("n1"))
	assert.ElementsMatch(t, []string{"n1"}, reader.DeletedIDs())
}

func TestTombstones_EmptyRemoteYieldsEmptySet(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(remote.NewMemObjectStore())

	require.NoError(t, registry.Refresh(ctx))
	assert.Empty(t, registry.DeletedIDs())
	assert.False(t, registry.IsDeleted("anything"))
}

// Two devices record different deletions concurrently. The loser of the
// conditional write re-reads, merges, and retries; no entry is lost.
func TestTombstones_ConcurrentDeletionsMerge(t *testing.T) {
	ctx := context.Background()
	objects := remote.NewMemObjectStore()

	a := newTestRegistry(objects)
	b := newTestRegistry(objects)
	require.NoError(t, a.Refresh(ctx))
	require.NoError(t, b.Refresh(ctx))

	// Both start from the same (absent) object. a writes first; b's write
	// is stale and must merge.
	require.NoError(t, a.RecordDeletion(ctx, "from-a"))
	require.NoError(t, b.RecordDeletion(ctx, "from-b"))

	merged := newTestRegistry(objects)
	require.NoError(t, merged.Refresh(ctx))
	assert.ElementsMatch(t, []string{"from-a", "from-b"}, merged.DeletedIDs())
}

func TestTombstones_MergeKeepsEarliestDeletionTime(t *testing.T) {
	set := models.TombstoneSet{"n1": 2000}
	set.Merge(models.TombstoneSet{"n1": 1000, "n2": 3000})

	assert.Equal(t, int64(1000), set["n1"])
	assert.Equal(t, int64(3000), set["n2"])
}

func TestTombstones_GCDropsOnlyExpired(t *testing.T) {
	ctx := context.Background()
	objects := remote.NewMemObjectStore()

	cfg := fastSyncCfg()
	cfg.TombstoneRetention = time.Hour
	registry := NewTombstoneRegistry(objects, cfg, logger.Nop())

	old := time.Now().Add(-2 * time.Hour).UnixMilli()
	fresh := time.Now().UnixMilli()
	content, err := remote.EncodeTombstones(models.TombstoneSet{"old": old, "fresh": fresh})
	require.NoError(t, err)
	_, err = objects.Put(ctx, remote.TombstonesPath, content, "")
	require.NoError(t, err)

	require.NoError(t, registry.Refresh(ctx))
	require.NoError(t, registry.GC(ctx))

	assert.False(t, registry.IsDeleted("old"))
	assert.True(t, registry.IsDeleted("fresh"))

	// The rewrite reached the remote too.
	after := newTestRegistry(objects)
	require.NoError(t, after.Refresh(ctx))
	assert.ElementsMatch(t, []string{"fresh"}, after.DeletedIDs())
}

func TestTombstones_GCWithNothingExpiredWritesNothing(t *testing.T) {
	ctx := context.Background()
	objects := remote.NewMemObjectStore()
	registry := newTestRegistry(objects)

	require.NoError(t, registry.Refresh(ctx))
	require.NoError(t, registry.RecordDeletion(ctx, "n1"))

	_, tokenBefore, err := objects.Get(ctx, remote.TombstonesPath)
	require.NoError(t, err)

	require.NoError(t, registry.GC(ctx))

	_, tokenAfter, err := objects.Get(ctx, remote.TombstonesPath)
	require.NoError(t, err)
	assert.Equal(t, tokenBefore, tokenAfter, "no-op GC must not rewrite the object")
}

func TestTombstones_DefaultRetentionApplied(t *testing.T) {
	registry := NewTombstoneRegistry(remote.NewMemObjectStore(), config.Sync{}, logger.Nop())
	assert.Equal(t, config.DefaultTombstoneRetention, registry.retention)
}
