package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/utils"
	"github.com/asavelyev/notesync/models"
)

// objectRepository implements ObjectRepository over Postgres. Every write is
// token-guarded: the caller's expected token is compared against the stored
// one in the same statement, so concurrent writers can never both succeed.
type objectRepository struct {
	db      *DB
	uuidGen *utils.UUIDGenerator
	logger  *logger.Logger
}

func NewObjectRepository(db *DB, log *logger.Logger) *objectRepository {
	return &objectRepository{
		db:      db,
		uuidGen: utils.NewUUIDGenerator(),
		logger:  log,
	}
}

func (r *objectRepository) Get(ctx context.Context, path string) ([]byte, string, error) {
	query, args, err := sq.Select("content", "token").
		From("objects").
		Where(sq.Eq{"path": path}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var content []byte
	var token string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&content, &token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrObjectNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return content, token, nil
}

// Put writes an object conditionally. An empty expectedToken means the
// caller believes the object does not exist yet: the insert fails with
// ErrTokenMismatch when another device created it first. A non-empty token
// replaces the content only if the stored token still matches.
func (r *objectRepository) Put(ctx context.Context, path string, content []byte, expectedToken string) (string, error) {
	newToken := r.uuidGen.Generate()
	now := time.Now().UTC()

	if expectedToken == "" {
		query, args, err := sq.Insert("objects").
			Columns("path", "content", "token", "updated_at").
			Values(path, content, newToken, now).
			PlaceholderFormat(sq.Dollar).
			ToSql()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}

		if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return "", ErrTokenMismatch
			}
			return "", fmt.Errorf("%w: %w", ErrExecutingQuery, err)
		}
		return newToken, nil
	}

	query, args, err := sq.Update("objects").
		Set("content", content).
		Set("token", newToken).
		Set("updated_at", now).
		Where(sq.Eq{"path": path, "token": expectedToken}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected == 0 {
		// Either the object vanished or its token moved on. Distinguish
		// so clients can tell a delete race from a write race.
		if _, _, err = r.Get(ctx, path); errors.Is(err, ErrObjectNotFound) {
			return "", ErrObjectNotFound
		}
		return "", ErrTokenMismatch
	}

	return newToken, nil
}

// List returns the direct children of dir, skipping objects nested deeper.
func (r *objectRepository) List(ctx context.Context, dir string) ([]models.ObjectEntry, error) {
	prefix := strings.TrimSuffix(dir, "/")
	if prefix != "" {
		prefix += "/"
	}

	query, args, err := sq.Select("path", "token", "updated_at").
		From("objects").
		Where(sq.Like{"path": likeEscape(prefix) + "%"}).
		OrderBy("path").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var entries []models.ObjectEntry
	for rows.Next() {
		var e models.ObjectEntry
		var updatedAt time.Time
		if err = rows.Scan(&e.Path, &e.Token, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
		if strings.Contains(strings.TrimPrefix(e.Path, prefix), "/") {
			continue
		}
		e.UpdatedAt = updatedAt.UnixMilli()
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return entries, nil
}

// Delete removes an object, honoring the same token guard as Put. An empty
// expectedToken deletes unconditionally. Deleting a missing object is not
// an error.
func (r *objectRepository) Delete(ctx context.Context, path string, expectedToken string) error {
	where := sq.Eq{"path": path}
	if expectedToken != "" {
		where["token"] = expectedToken
	}

	query, args, err := sq.Delete("objects").
		Where(where).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	if affected == 0 && expectedToken != "" {
		if _, _, err = r.Get(ctx, path); err == nil {
			return ErrTokenMismatch
		}
	}

	return nil
}

// likeEscape neutralizes LIKE metacharacters in a literal prefix.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
