package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/models"
	"github.com/jackc/pgerrcode"
	"golang.org/x/crypto/bcrypt"
)

func newTestDeviceRepo(t *testing.T) (*deviceRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.NewLogger("test")
	repo := &deviceRepository{
		db:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func TestDeviceCreate_HashesSecret(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO devices").
		WithArgs("laptop-1", "laptop", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.Create(context.Background(), models.Device{
		DeviceID: "laptop-1",
		Label:    "laptop",
		Secret:   "s3cret",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Secret != "" {
		t.Error("plaintext secret must be cleared after create")
	}
	if err = bcrypt.CompareHashAndPassword([]byte(created.SecretHash), []byte("s3cret")); err != nil {
		t.Errorf("stored hash does not match secret: %v", err)
	}
}

func TestDeviceCreate_Duplicate(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO devices").
		WillReturnError(pgError(pgerrcode.UniqueViolation))

	_, err := repo.Create(context.Background(), models.Device{DeviceID: "laptop-1", Secret: "x"})
	if !errors.Is(err, ErrDeviceExists) {
		t.Fatalf("expected ErrDeviceExists, got %v", err)
	}
}

func TestDeviceFindByID_Success(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"device_id", "label", "secret_hash", "created_at"}).
		AddRow("laptop-1", "laptop", "$2a$10$hash", now)

	mock.ExpectQuery("SELECT device_id, label, secret_hash, created_at FROM devices").
		WithArgs("laptop-1").
		WillReturnRows(rows)

	device, err := repo.FindByID(context.Background(), "laptop-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if device.DeviceID != "laptop-1" || device.SecretHash != "$2a$10$hash" {
		t.Errorf("unexpected device: %+v", device)
	}
}

func TestDeviceFindByID_NotFound(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT device_id, label, secret_hash, created_at FROM devices").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}
