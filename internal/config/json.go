package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// StructuredJSONConfig mirrors StructuredConfig with JSON tags and
// string-friendly durations for the optional config file.
type StructuredJSONConfig struct {
	App struct {
		TokenSignKey  string   `json:"token_sign_key"`
		TokenIssuer   string   `json:"token_issuer"`
		TokenDuration Duration `json:"token_duration"`
	} `json:"app,omitempty"`

	Device struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"device,omitempty"`

	Remote struct {
		Address        string   `json:"address"`
		RequestTimeout Duration `json:"request_timeout"`
		BearerToken    string   `json:"bearer_token"`
	} `json:"remote,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
		Local struct {
			Path string `json:"path"`
		} `json:"local,omitempty"`
	} `json:"storage,omitempty"`

	Sync struct {
		DebounceWindow     Duration `json:"debounce_window"`
		DrainDelay         Duration `json:"drain_delay"`
		MaxPushAttempts    int      `json:"max_push_attempts"`
		TombstoneRetention Duration `json:"tombstone_retention"`
		PollInterval       Duration `json:"poll_interval"`
		EditPause          Duration `json:"edit_pause"`
	} `json:"sync,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			TokenSignKey:  jsonCfg.App.TokenSignKey,
			TokenIssuer:   jsonCfg.App.TokenIssuer,
			TokenDuration: time.Duration(jsonCfg.App.TokenDuration),
		},
		Device: Device{
			ID:    jsonCfg.Device.ID,
			Label: jsonCfg.Device.Label,
		},
		Remote: Remote{
			Address:        jsonCfg.Remote.Address,
			RequestTimeout: time.Duration(jsonCfg.Remote.RequestTimeout),
			BearerToken:    jsonCfg.Remote.BearerToken,
		},
		Storage: Storage{
			DB:    DB{DSN: jsonCfg.Storage.DB.DSN},
			Local: Local{Path: jsonCfg.Storage.Local.Path},
		},
		Sync: Sync{
			DebounceWindow:     time.Duration(jsonCfg.Sync.DebounceWindow),
			DrainDelay:         time.Duration(jsonCfg.Sync.DrainDelay),
			MaxPushAttempts:    jsonCfg.Sync.MaxPushAttempts,
			TombstoneRetention: time.Duration(jsonCfg.Sync.TombstoneRetention),
			PollInterval:       time.Duration(jsonCfg.Sync.PollInterval),
			EditPause:          time.Duration(jsonCfg.Sync.EditPause),
		},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling
// from strings like "1h", "30s" as well as bare nanosecond numbers.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return errors.New("invalid duration value")
	}
}
