package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	clientmigrations "github.com/asavelyev/notesync/migrations/client"
	"github.com/mattn/go-sqlite3"
)

// LocalDB wraps the device-side SQLite connection.
type LocalDB struct {
	*sql.DB
	logger *logger.Logger
}

// NewLocalDB opens (or creates) the SQLite database at cfg.Path, applies
// the embedded schema migrations, and returns the ready connection. An
// empty path falls back to an in-memory database.
func NewLocalDB(ctx context.Context, cfg config.Local, log *logger.Logger) (*LocalDB, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Err(err).Str("path", path).Msg("error opening local database")
		return nil, fmt.Errorf("open local database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// from the engine's own goroutines.
	conn.SetMaxOpenConns(1)

	if err = conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping local database: %w", err)
	}

	if err = clientmigrations.Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate local database: %w", err)
	}

	log.Info().Str("path", path).Msg("local database ready")
	return &LocalDB{DB: conn, logger: log}, nil
}

// mapSQLiteError converts driver-level failures into the store's sentinel
// errors. A full disk is the one condition the engine must distinguish.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrFull {
		return fmt.Errorf("%w: %v", ErrStoreFull, err)
	}
	return err
}
