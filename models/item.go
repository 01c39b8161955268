package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// ItemType identifies one of the three independent record collections.
type ItemType string

const (
	TypeNote  ItemType = "note"
	TypeList  ItemType = "list"
	TypeEvent ItemType = "event"
)

// ItemTypes lists every known collection in a fixed order. Full
// reconciliation passes iterate collections in this order.
var ItemTypes = []ItemType{TypeNote, TypeList, TypeEvent}

// Valid reports whether t names a known collection.
func (t ItemType) Valid() bool {
	switch t {
	case TypeNote, TypeList, TypeEvent:
		return true
	}
	return false
}

// Item is the unit of synchronization. The sync engine never interprets the
// payload beyond the mergeable/non-mergeable field classification exposed by
// [Payload]; everything else about the content belongs to the domain layer.
type Item struct {
	// ID is an opaque identifier, unique within the item's collection and
	// immutable for the item's lifetime.
	ID string `json:"id"`

	// Type names the collection this item belongs to.
	Type ItemType `json:"type"`

	// Generation is a monotonically increasing version counter, bumped
	// exactly once per local mutation intended to be synchronized.
	Generation int64 `json:"generation"`

	// MutatedAt is the epoch-millisecond timestamp of the last mutation.
	// Used only as a tie-breaker when generations are equal.
	MutatedAt int64 `json:"mutated_at"`

	// OriginDevice identifies the device that produced this generation.
	OriginDevice string `json:"origin_device"`

	// Payload holds the domain content.
	Payload Payload `json:"payload"`
}

// Touch bumps the item's generation and refreshes the mutation metadata.
// Called once per local mutation that should be synchronized.
func (i *Item) Touch(deviceID string) {
	i.Generation++
	i.MutatedAt = time.Now().UnixMilli()
	i.OriginDevice = deviceID
}

// State returns the lightweight descriptor used for sync planning.
func (i *Item) State() ItemState {
	return ItemState{
		ID:         i.ID,
		Type:       i.Type,
		Generation: i.Generation,
		MutatedAt:  i.MutatedAt,
		Origin:     i.OriginDevice,
		Hash:       i.Payload.Hash(),
	}
}

// ItemState is a compact per-item descriptor: everything the planner needs
// to decide push/pull/skip without carrying the full payload around.
type ItemState struct {
	ID         string   `json:"id"`
	Type       ItemType `json:"type"`
	Generation int64    `json:"generation"`
	MutatedAt  int64    `json:"mutated_at"`
	Origin     string   `json:"origin"`
	Hash       string   `json:"hash"`
}

// hashJSON returns the hex SHA-256 digest of v's JSON encoding. Struct field
// order is fixed by the type definitions, so the encoding is deterministic.
func hashJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
