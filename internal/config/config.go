// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for notesync.
// It aggregates all sub-configurations and is populated by merging values
// from environment variables, command-line flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env:       direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds token signing parameters shared by the server and, for
	// pre-flight expiry checks, the client.
	App App `envPrefix:"APP_"`

	// Device identifies this installation in sync metadata.
	Device Device `envPrefix:"DEVICE_"`

	// Remote holds the object-store endpoint settings used by the client.
	Remote Remote `envPrefix:"REMOTE_"`

	// Storage holds settings for both persistence backends: the server's
	// Postgres object store and the client's local SQLite item store.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync holds the reconciliation engine's tuning knobs.
	Sync Sync `envPrefix:"SYNC_"`

	// Server holds network address and timeout settings for the reference
	// object-store server.
	Server Server `envPrefix:"SERVER_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// App holds token lifecycle settings.
type App struct {
	// TokenSignKey is the secret key used to sign and verify JWT tokens.
	// Env: APP_TOKEN_SIGN_KEY
	TokenSignKey string `env:"TOKEN_SIGN_KEY"`

	// TokenIssuer is the "iss" claim embedded in every issued token.
	// Env: APP_TOKEN_ISSUER
	TokenIssuer string `env:"TOKEN_ISSUER"`

	// TokenDuration is how long an issued token remains valid.
	// Env: APP_TOKEN_DURATION
	TokenDuration time.Duration `env:"TOKEN_DURATION"`
}

// Device identifies the local installation.
type Device struct {
	// ID is the opaque device identifier recorded as the origin of every
	// generation this device produces. Generated and persisted on first
	// run when empty.
	// Env: DEVICE_ID
	ID string `env:"ID"`

	// Label is a human-readable device name.
	// Env: DEVICE_LABEL
	Label string `env:"LABEL"`
}

// Remote holds the object-store endpoint settings for the client.
type Remote struct {
	// Address is the object-store server address ("host:port" or full URL).
	// Env: REMOTE_ADDRESS
	Address string `env:"ADDRESS"`

	// RequestTimeout bounds a single outbound request.
	// Env: REMOTE_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// BearerToken is the device's credential for the object store. Sync is
	// refused immediately when it is missing or expired.
	// Env: REMOTE_BEARER_TOKEN
	BearerToken string `env:"BEARER_TOKEN"`
}

// Storage groups the configuration for all persistence backends.
type Storage struct {
	// DB holds the server's Postgres connection settings.
	DB DB `envPrefix:"DB_"`

	// Local holds the client's SQLite settings.
	Local Local `envPrefix:"LOCAL_"`
}

// DB holds connection settings for the server's relational database.
type DB struct {
	// DSN is the Postgres connection string.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Local holds the client-side item store settings.
type Local struct {
	// Path is the SQLite database file path. ":memory:" keeps the store
	// in process memory.
	// Env: STORAGE_LOCAL_PATH
	Path string `env:"PATH"`
}

// Sync holds the reconciliation engine's tuning knobs. Zero values are
// replaced with defaults during validation.
type Sync struct {
	// DebounceWindow is how long after a local mutation the engine waits
	// before dispatching a sync task, coalescing bursts of edits.
	// Env: SYNC_DEBOUNCE_WINDOW
	DebounceWindow time.Duration `env:"DEBOUNCE_WINDOW"`

	// DrainDelay is the fixed pause inserted between queued tasks to stay
	// under remote rate limits.
	// Env: SYNC_DRAIN_DELAY
	DrainDelay time.Duration `env:"DRAIN_DELAY"`

	// MaxPushAttempts bounds the conditional-write retry loop per item.
	// Env: SYNC_MAX_PUSH_ATTEMPTS
	MaxPushAttempts int `env:"MAX_PUSH_ATTEMPTS"`

	// TombstoneRetention is how long deletion records are kept before GC.
	// Env: SYNC_TOMBSTONE_RETENTION
	TombstoneRetention time.Duration `env:"TOMBSTONE_RETENTION"`

	// PollInterval is how often the poller samples the shared status
	// marker.
	// Env: SYNC_POLL_INTERVAL
	PollInterval time.Duration `env:"POLL_INTERVAL"`

	// EditPause is how long the poller stays paused after an edit
	// notification.
	// Env: SYNC_EDIT_PAUSE
	EditPause time.Duration `env:"EDIT_PAUSE"`
}

// Server holds network and timeout settings for the inbound transport layer.
type Server struct {
	// HTTPAddress is the TCP address the HTTP server listens on,
	// in "host:port" format.
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// RequestTimeout is the maximum duration allowed for a single inbound
	// request.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Engine defaults, applied where the merged config left zero values.
const (
	DefaultDebounceWindow     = 10 * time.Second
	DefaultDrainDelay         = 300 * time.Millisecond
	DefaultMaxPushAttempts    = 3
	DefaultTombstoneRetention = 7 * 24 * time.Hour
	DefaultPollInterval       = 30 * time.Second
	DefaultEditPause          = 60 * time.Second
	DefaultRequestTimeout     = 30 * time.Second
)

// GetStructuredConfig builds the merged configuration from environment
// variables, command-line flags, and the optional JSON file, in that order
// of increasing precedence for the merge performed by the builder.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
