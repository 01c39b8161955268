package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/models"
	"golang.org/x/crypto/bcrypt"
)

// deviceRepository stores registered device accounts. Secrets are hashed
// with bcrypt before touching the database.
type deviceRepository struct {
	db     *DB
	logger *logger.Logger
}

func NewDeviceRepository(db *DB, log *logger.Logger) *deviceRepository {
	return &deviceRepository{db: db, logger: log}
}

func (r *deviceRepository) Create(ctx context.Context, device models.Device) (models.Device, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(device.Secret), bcrypt.DefaultCost)
	if err != nil {
		return models.Device{}, fmt.Errorf("hash device secret: %w", err)
	}
	device.Secret = ""
	device.SecretHash = string(hash)
	device.CreatedAt = time.Now().UTC()

	query, args, err := sq.Insert(device.TableName()).
		Columns("device_id", "label", "secret_hash", "created_at").
		Values(device.DeviceID, device.Label, device.SecretHash, device.CreatedAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return models.Device{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return models.Device{}, ErrDeviceExists
		}
		return models.Device{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return device, nil
}

func (r *deviceRepository) FindByID(ctx context.Context, deviceID string) (models.Device, error) {
	query, args, err := sq.Select("device_id", "label", "secret_hash", "created_at").
		From(models.Device{}.TableName()).
		Where(sq.Eq{"device_id": deviceID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return models.Device{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var device models.Device
	err = r.db.QueryRowContext(ctx, query, args...).
		Scan(&device.DeviceID, &device.Label, &device.SecretHash, &device.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Device{}, ErrDeviceNotFound
	}
	if err != nil {
		return models.Device{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return device, nil
}
