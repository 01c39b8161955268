package service

import (
	"context"
	"sort"

	"github.com/asavelyev/notesync/models"
)

// decision classifies one item pair during planning.
type decision int

const (
	decideSkip decision = iota
	decidePull
	decidePush
	decideConflict
)

// remoteItem pairs a decoded remote item with the version token it was
// observed under. The token guards any follow-up conditional write.
type remoteItem struct {
	item  models.Item
	token string
}

// decide is the per-item reconciliation rule. Either side may be nil,
// meaning the item is absent there.
//
// A strictly higher generation wins outright. At equal generations an equal
// payload hash means both sides already agree; divergent content written by
// different devices is never tie-broken silently and becomes a conflict
// candidate instead. Only same-origin divergence (a device racing its own
// earlier write) falls back to the mutation timestamp.
func decide(local, remote *models.ItemState) decision {
	switch {
	case local == nil && remote == nil:
		return decideSkip
	case local == nil:
		return decidePull
	case remote == nil:
		return decidePush
	}

	switch {
	case remote.Generation > local.Generation:
		return decidePull
	case local.Generation > remote.Generation:
		return decidePush
	}

	// Equal generations.
	if local.Hash == remote.Hash {
		return decideSkip
	}
	if local.Origin != remote.Origin {
		return decideConflict
	}
	switch {
	case local.MutatedAt > remote.MutatedAt:
		return decidePush
	case remote.MutatedAt > local.MutatedAt:
		return decidePull
	default:
		return decideConflict
	}
}

// buildPlan classifies every item known on either side into exactly one
// plan bucket. The local side enters as lightweight descriptors; payloads
// are loaded later, only for the ids the plan actually pushes or hands to
// the conflict detector. Two passes over O(1) indexes: the first walks
// remote items (covering pull, conflict, and both-present push cases), the
// second catches local-only items. Tombstoned ids never enter the plan.
//
// Context cancellation is checked per iteration so large collections can
// abort early.
func buildPlan(
	ctx context.Context,
	local []models.ItemState,
	remote map[string]remoteItem,
	isDeleted func(id string) bool,
) (models.SyncPlan, error) {
	var plan models.SyncPlan

	localIndex := make(map[string]models.ItemState, len(local))
	for _, state := range local {
		localIndex[state.ID] = state
	}

	remoteIDs := make([]string, 0, len(remote))
	for id := range remote {
		remoteIDs = append(remoteIDs, id)
	}
	sort.Strings(remoteIDs)

	for _, id := range remoteIDs {
		if err := ctx.Err(); err != nil {
			return models.SyncPlan{}, err
		}
		r := remote[id]
		if isDeleted(id) {
			continue
		}

		remoteState := r.item.State()
		var localState *models.ItemState
		localCopy, existsLocally := localIndex[id]
		if existsLocally {
			localState = &localCopy
		}

		switch decide(localState, &remoteState) {
		case decidePull:
			plan.Pull = append(plan.Pull, r.item)
		case decidePush:
			plan.Push = append(plan.Push, localCopy)
		case decideConflict:
			plan.Conflicts = append(plan.Conflicts, models.ConflictCandidate{
				LocalState:  localCopy,
				Remote:      r.item,
				RemoteToken: r.token,
			})
		case decideSkip:
			plan.Skipped++
		}
	}

	for _, state := range local {
		if err := ctx.Err(); err != nil {
			return models.SyncPlan{}, err
		}
		if _, seen := remote[state.ID]; seen {
			continue
		}
		if isDeleted(state.ID) {
			continue
		}
		plan.Push = append(plan.Push, state)
	}

	return plan, nil
}
