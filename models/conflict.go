package models

import "fmt"

// ConflictStatus is the lifecycle state of a conflict report.
type ConflictStatus string

const (
	ConflictPending  ConflictStatus = "pending"
	ConflictResolved ConflictStatus = "resolved"
)

// ConflictChoice selects the winning side when resolving a report.
type ConflictChoice string

const (
	ChooseA      ConflictChoice = "a"
	ChooseB      ConflictChoice = "b"
	ChooseMerged ConflictChoice = "merged"
)

// ConflictReport is produced when two devices wrote divergent non-mergeable
// content at the same item generation. Both full payloads are retained so
// the human resolving it never loses either side.
type ConflictReport struct {
	ItemID     string   `json:"item_id"`
	Type       ItemType `json:"type"`
	DetectedAt int64    `json:"detected_at"`

	GenerationA int64   `json:"generation_a"`
	PayloadA    Payload `json:"payload_a"`
	OriginA     string  `json:"origin_a"`

	GenerationB int64   `json:"generation_b"`
	PayloadB    Payload `json:"payload_b"`
	OriginB     string  `json:"origin_b"`

	ConflictingFields []string       `json:"conflicting_fields"`
	Status            ConflictStatus `json:"status"`
}

// RemotePath is the object path under which this report is stored.
func (r ConflictReport) RemotePath() string {
	return fmt.Sprintf("conflicts/%s_%d", r.ItemID, r.DetectedAt)
}
