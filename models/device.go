package models

import "time"

// Device is an account entity on the reference object-store server. Each
// physical device registers once and authenticates with its secret to obtain
// a bearer token.
type Device struct {
	// DeviceID is the opaque identifier the device uses as sync origin.
	DeviceID string `json:"device_id"`

	// Label is a human-readable device name ("laptop", "phone").
	Label string `json:"label"`

	// Secret is the device's shared secret. Sent only during registration
	// and login; the server stores a bcrypt hash, never this value.
	Secret string `json:"secret,omitempty"`

	// SecretHash is the bcrypt hash kept at the persistence layer.
	SecretHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table associated with the Device model.
func (d Device) TableName() string {
	return "devices"
}
