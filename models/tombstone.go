package models

import "time"

// TombstoneSet is the shared deletion registry: item id to epoch-millisecond
// deletion time. A single remote object holds one set for all collections.
type TombstoneSet map[string]int64

// Merge folds other into t, keeping the earliest deletion time when both
// sets contain the same id. Returns t for chaining.
func (t TombstoneSet) Merge(other TombstoneSet) TombstoneSet {
	for id, at := range other {
		if cur, ok := t[id]; !ok || at < cur {
			t[id] = at
		}
	}
	return t
}

// Expired returns the ids whose tombstones are older than retention at the
// given instant.
func (t TombstoneSet) Expired(retention time.Duration, now time.Time) []string {
	cutoff := now.Add(-retention).UnixMilli()
	var ids []string
	for id, at := range t {
		if at < cutoff {
			ids = append(ids, id)
		}
	}
	return ids
}

// Clone returns an independent copy of the set.
func (t TombstoneSet) Clone() TombstoneSet {
	out := make(TombstoneSet, len(t))
	for id, at := range t {
		out[id] = at
	}
	return out
}
