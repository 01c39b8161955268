package models

// StatusMarker is the tiny shared object the poller samples to decide
// whether a full reconciliation pass is warranted. Every device that
// completes a push-bearing pass rewrites it.
type StatusMarker struct {
	// LastChangeAt is the epoch-millisecond time of the most recent remote
	// change any device has published.
	LastChangeAt int64 `json:"last_change_at"`

	// LastDevice identifies the device that published the change.
	LastDevice string `json:"last_device"`

	// ChangedScopes lists the scopes touched by that change.
	ChangedScopes []SyncScope `json:"changed_scopes,omitempty"`
}
