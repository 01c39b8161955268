package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigBuilder_MergePrecedence(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		&StructuredConfig{Remote: Remote{Address: "first:8080"}},
		&StructuredConfig{
			Remote: Remote{Address: "second:9090", RequestTimeout: 10 * time.Second},
			Device: Device{ID: "dev-2"},
		},
	)

	cfg, err := b.build()
	require.NoError(t, err)

	// mergo keeps the first non-zero value, later configs fill the gaps
	assert.Equal(t, "first:8080", cfg.Remote.Address)
	assert.Equal(t, 10*time.Second, cfg.Remote.RequestTimeout)
	assert.Equal(t, "dev-2", cfg.Device.ID)
}

func TestConfigBuilder_EmptyBuild(t *testing.T) {
	cfg, err := newConfigBuilder().build()
	require.NoError(t, err)
	assert.Equal(t, &StructuredConfig{}, cfg)
}

func TestClientConfig_Defaults(t *testing.T) {
	cfg := &ClientConfig{Remote: Remote{Address: "localhost:8080"}}
	cfg.applyDefaults()

	assert.Equal(t, DefaultDebounceWindow, cfg.Sync.DebounceWindow)
	assert.Equal(t, DefaultDrainDelay, cfg.Sync.DrainDelay)
	assert.Equal(t, DefaultMaxPushAttempts, cfg.Sync.MaxPushAttempts)
	assert.Equal(t, DefaultTombstoneRetention, cfg.Sync.TombstoneRetention)
	assert.Equal(t, DefaultPollInterval, cfg.Sync.PollInterval)
	assert.Equal(t, DefaultEditPause, cfg.Sync.EditPause)
	assert.NoError(t, cfg.validate())
}

func TestClientConfig_Validate_NoAddress(t *testing.T) {
	cfg := &ClientConfig{}
	cfg.applyDefaults()
	assert.ErrorIs(t, cfg.validate(), ErrNoRemoteAddress)
}

func TestServerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServerConfig
		wantErr error
	}{
		{
			name:    "missing address",
			cfg:     ServerConfig{DB: DB{DSN: "x"}, App: App{TokenSignKey: "k"}},
			wantErr: ErrNoServerAddress,
		},
		{
			name:    "missing dsn",
			cfg:     ServerConfig{Server: Server{HTTPAddress: ":8080"}, App: App{TokenSignKey: "k"}},
			wantErr: ErrNoDatabaseDSN,
		},
		{
			name:    "missing sign key",
			cfg:     ServerConfig{Server: Server{HTTPAddress: ":8080"}, DB: DB{DSN: "x"}},
			wantErr: ErrNoTokenSignKey,
		},
		{
			name: "complete",
			cfg: ServerConfig{
				Server: Server{HTTPAddress: ":8080"},
				DB:     DB{DSN: "x"},
				App:    App{TokenSignKey: "k"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
