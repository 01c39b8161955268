package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	servermigrations "github.com/asavelyev/notesync/migrations/server"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps the server-side Postgres connection.
type DB struct {
	*sql.DB
	logger *logger.Logger
}

// NewConnectPostgres opens the Postgres connection behind the object-store
// API, pings it, and applies the embedded schema migrations.
func NewConnectPostgres(ctx context.Context, cfg config.DB, log *logger.Logger) (*DB, error) {
	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		log.Err(err).Msg("error occured during database connection")
		return nil, fmt.Errorf("error occured during database connection: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(4)

	if err = conn.PingContext(ctx); err != nil {
		log.Err(err).Msg("error connecting database (ping)")
		return nil, err
	}

	if err = servermigrations.Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate server database: %w", err)
	}

	log.Info().Msg("connected to database successfully")
	return &DB{DB: conn, logger: log}, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, used to detect create races and duplicate registrations.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
