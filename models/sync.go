package models

import "time"

// SyncScope names the slice of the item space a sync task covers: a single
// collection, or every collection at once.
type SyncScope string

const (
	ScopeAll   SyncScope = "all"
	ScopeNote  SyncScope = SyncScope(TypeNote)
	ScopeList  SyncScope = SyncScope(TypeList)
	ScopeEvent SyncScope = SyncScope(TypeEvent)
)

// ScopeFor returns the scope covering exactly one collection.
func ScopeFor(t ItemType) SyncScope {
	return SyncScope(t)
}

// Types expands a scope into the collections it covers.
func (s SyncScope) Types() []ItemType {
	if s == ScopeAll {
		return ItemTypes
	}
	return []ItemType{ItemType(s)}
}

// Covers reports whether s includes everything other does. ScopeAll covers
// every scope; a typed scope covers only itself.
func (s SyncScope) Covers(other SyncScope) bool {
	return s == ScopeAll || s == other
}

// SyncTask is one queued unit of reconciliation work.
type SyncTask struct {
	TaskID     string    `json:"task_id"`
	Scope      SyncScope `json:"scope"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// SyncPlan is the outcome of comparing local and remote item sets for one
// collection. Pull carries the remote items to adopt locally, Push the
// descriptors of local items to write remotely, and Conflicts the
// same-generation divergent candidates handed to the conflict detector.
// Skipped counts already-consistent items.
//
// Planning compares descriptors, not payloads: the local side enters as
// [ItemState] and full local items are loaded only for the ids that
// actually need a push or a conflict check.
type SyncPlan struct {
	Pull      []Item
	Push      []ItemState
	Conflicts []ConflictCandidate
	Skipped   int
}

// Empty reports whether the plan requires no work at all.
func (p SyncPlan) Empty() bool {
	return len(p.Pull) == 0 && len(p.Push) == 0 && len(p.Conflicts) == 0
}

// ConflictCandidate marks a same-generation divergence found during
// planning. Only the local descriptor is known at that point; the full
// local payload is loaded before the pair reaches the detector.
type ConflictCandidate struct {
	LocalState  ItemState
	Remote      Item
	RemoteToken string
}

// ConflictPair carries both full sides of a same-generation divergence.
// RemoteToken is the remote object's version token at observation time,
// needed for any follow-up conditional write.
type ConflictPair struct {
	Local       Item
	Remote      Item
	RemoteToken string
}

// AgreedState records the generation and timestamp at which an item was last
// observed identical on both sides. Diagnostic only; reconciliation decisions
// never read it.
type AgreedState struct {
	ItemID     string   `json:"item_id"`
	Type       ItemType `json:"type"`
	Generation int64    `json:"generation"`
	MutatedAt  int64    `json:"mutated_at"`
	AgreedAt   int64    `json:"agreed_at"`
}
