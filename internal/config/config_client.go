package config

import (
	"fmt"
	"time"
)

// ClientConfig is the device-side view assembled from [StructuredConfig]:
// just the fields the sync agent runtime needs.
type ClientConfig struct {
	// Device identifies this installation.
	Device Device
	// Remote contains the object-store endpoint settings.
	Remote Remote
	// Local contains the SQLite item-store settings.
	Local Local
	// Sync contains the engine tuning knobs with defaults applied.
	Sync Sync
}

// GetClientConfig builds and validates a client-specific config view from
// the merged structured configuration. Zero-valued sync knobs are replaced
// by package defaults.
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		Device: cfg.Device,
		Remote: cfg.Remote,
		Local:  cfg.Storage.Local,
		Sync:   cfg.Sync,
	}
	clientCfg.applyDefaults()

	return clientCfg, clientCfg.validate()
}

func (c *ClientConfig) applyDefaults() {
	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = DefaultRequestTimeout
	}
	if c.Sync.DebounceWindow <= 0 {
		c.Sync.DebounceWindow = DefaultDebounceWindow
	}
	if c.Sync.DrainDelay <= 0 {
		c.Sync.DrainDelay = DefaultDrainDelay
	}
	if c.Sync.MaxPushAttempts <= 0 {
		c.Sync.MaxPushAttempts = DefaultMaxPushAttempts
	}
	if c.Sync.TombstoneRetention <= 0 {
		c.Sync.TombstoneRetention = DefaultTombstoneRetention
	}
	if c.Sync.PollInterval <= 0 {
		c.Sync.PollInterval = DefaultPollInterval
	}
	if c.Sync.EditPause <= 0 {
		c.Sync.EditPause = DefaultEditPause
	}
}

func (c *ClientConfig) validate() error {
	if c.Remote.Address == "" {
		return ErrNoRemoteAddress
	}
	if c.Sync.DebounceWindow < time.Millisecond {
		return ErrInvalidSyncSettings
	}
	return nil
}

// ServerConfig is the server-side view assembled from [StructuredConfig].
type ServerConfig struct {
	App    App
	DB     DB
	Server Server
}

// GetServerConfig builds and validates a server-specific config view.
func GetServerConfig() (*ServerConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	serverCfg := &ServerConfig{
		App:    cfg.App,
		DB:     cfg.Storage.DB,
		Server: cfg.Server,
	}
	if serverCfg.Server.RequestTimeout <= 0 {
		serverCfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if serverCfg.App.TokenDuration <= 0 {
		serverCfg.App.TokenDuration = 24 * time.Hour
	}

	return serverCfg, serverCfg.validate()
}

func (c *ServerConfig) validate() error {
	if c.Server.HTTPAddress == "" {
		return ErrNoServerAddress
	}
	if c.DB.DSN == "" {
		return ErrNoDatabaseDSN
	}
	if c.App.TokenSignKey == "" {
		return ErrNoTokenSignKey
	}
	return nil
}
