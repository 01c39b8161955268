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
	"github.com/mattn/go-sqlite3"
)

func newTestItemRepo(t *testing.T) (*localItemRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.NewLogger("test")
	repo := &localItemRepository{
		LocalDB: &LocalDB{DB: db, logger: l},
		logger:  l,
	}
	return repo, mock, db
}

func noteItem(id string) models.Item {
	return models.Item{
		ID:           id,
		Type:         models.TypeNote,
		Generation:   1,
		MutatedAt:    time.Now().UnixMilli(),
		OriginDevice: "laptop-1",
		Payload: models.Payload{
			Type: models.TypeNote,
			Note: &models.NotePayload{Title: "groceries", Body: "milk"},
		},
	}
}

func TestItemSave_Upsert(t *testing.T) {
	repo, mock, db := newTestItemRepo(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO items").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), noteItem("n1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestItemSave_DiskFull(t *testing.T) {
	repo, mock, db := newTestItemRepo(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO items").
		WillReturnError(sqlite3.Error{Code: sqlite3.ErrFull})

	err := repo.Save(context.Background(), noteItem("n1"))
	if !errors.Is(err, ErrStoreFull) {
		t.Fatalf("expected ErrStoreFull, got %v", err)
	}
}

func TestItemGet_NotFound(t *testing.T) {
	repo, mock, db := newTestItemRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT type, id, generation, mutated_at, origin_device, payload FROM items").
		WithArgs("missing", "note").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), models.TypeNote, "missing")
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestItemGet_Success(t *testing.T) {
	repo, mock, db := newTestItemRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"type", "id", "generation", "mutated_at", "origin_device", "payload"}).
		AddRow("note", "n1", int64(3), int64(1700000000000), "laptop-1",
			`{"type":"note","note":{"title":"groceries","body":"milk"}}`)

	mock.ExpectQuery("SELECT type, id, generation, mutated_at, origin_device, payload FROM items").
		WithArgs("n1", "note").
		WillReturnRows(rows)

	item, err := repo.Get(context.Background(), models.TypeNote, "n1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Generation != 3 || item.OriginDevice != "laptop-1" {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Payload.Note == nil || item.Payload.Note.Title != "groceries" {
		t.Errorf("payload not decoded: %+v", item.Payload)
	}
}

func TestItemSweep_CountsRemovedRows(t *testing.T) {
	repo, mock, db := newTestItemRepo(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM items").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.Sweep(context.Background(), []string{"n1", "n2", "ghost"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 swept rows, got %d", n)
	}
}

func TestItemSweep_EmptyIDs(t *testing.T) {
	repo, _, db := newTestItemRepo(t)
	defer db.Close()

	n, err := repo.Sweep(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 swept rows, got %d", n)
	}
}

func TestDeviceID_NoneStored(t *testing.T) {
	repo, mock, db := newTestItemRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT device_id FROM device").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.DeviceID(context.Background())
	if !errors.Is(err, ErrNoDeviceIdentity) {
		t.Fatalf("expected ErrNoDeviceIdentity, got %v", err)
	}
}
