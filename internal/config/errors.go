package config

import "errors"

var (
	ErrNoRemoteAddress     = errors.New("no remote object-store address configured")
	ErrNoServerAddress     = errors.New("no server address configured")
	ErrNoDatabaseDSN       = errors.New("no database DSN configured")
	ErrNoTokenSignKey      = errors.New("no token sign key configured")
	ErrInvalidSyncSettings = errors.New("invalid sync settings")
)
