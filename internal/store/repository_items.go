package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/models"
)

type localItemRepository struct {
	*LocalDB
	logger *logger.Logger
}

// NewLocalStorage constructs the SQLite-backed [LocalStorage].
func NewLocalStorage(db *LocalDB, logger *logger.Logger) LocalStorage {
	return &localItemRepository{
		LocalDB: db,
		logger:  logger,
	}
}

func (l *localItemRepository) Save(ctx context.Context, items ...models.Item) error {
	log := logger.FromContext(ctx)

	for _, item := range items {
		payload, err := json.Marshal(item.Payload)
		if err != nil {
			return fmt.Errorf("encode payload for item %s: %w", item.ID, err)
		}

		query, args, err := sq.Insert("items").
			Columns("type", "id", "generation", "mutated_at", "origin_device", "payload", "hash").
			Values(item.Type, item.ID, item.Generation, item.MutatedAt, item.OriginDevice, string(payload), item.Payload.Hash()).
			Suffix(`ON CONFLICT (type, id) DO UPDATE SET
				generation = excluded.generation,
				mutated_at = excluded.mutated_at,
				origin_device = excluded.origin_device,
				payload = excluded.payload,
				hash = excluded.hash`).
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: save item: %v", ErrBuildingSQLQuery, err)
		}

		if _, err = l.ExecContext(ctx, query, args...); err != nil {
			log.Err(err).
				Str("item_id", item.ID).
				Str("type", string(item.Type)).
				Msg("failed to upsert item")
			return fmt.Errorf("save item %s: %w", item.ID, mapSQLiteError(err))
		}
	}

	return nil
}

func (l *localItemRepository) Get(ctx context.Context, t models.ItemType, id string) (models.Item, error) {
	query, args, err := sq.Select("type", "id", "generation", "mutated_at", "origin_device", "payload").
		From("items").
		Where(sq.Eq{"type": t, "id": id}).
		ToSql()
	if err != nil {
		return models.Item{}, fmt.Errorf("%w: get item: %v", ErrBuildingSQLQuery, err)
	}

	row := l.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Item{}, fmt.Errorf("item %s/%s: %w", t, id, ErrItemNotFound)
		}
		return models.Item{}, err
	}

	return item, nil
}

func (l *localItemRepository) GetAll(ctx context.Context, t models.ItemType) ([]models.Item, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Select("type", "id", "generation", "mutated_at", "origin_device", "payload").
		From("items").
		Where(sq.Eq{"type": t}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: get all items: %v", ErrBuildingSQLQuery, err)
	}

	rows, err := l.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("type", string(t)).Msg("failed to query items")
		return nil, fmt.Errorf("%w: %v", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutingQuery, err)
	}
	return items, nil
}

func (l *localItemRepository) States(ctx context.Context, t models.ItemType) ([]models.ItemState, error) {
	query, args, err := sq.Select("type", "id", "generation", "mutated_at", "origin_device", "hash").
		From("items").
		Where(sq.Eq{"type": t}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: item states: %v", ErrBuildingSQLQuery, err)
	}

	rows, err := l.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var states []models.ItemState
	for rows.Next() {
		var st models.ItemState
		if err = rows.Scan(&st.Type, &st.ID, &st.Generation, &st.MutatedAt, &st.Origin, &st.Hash); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScanningRow, err)
		}
		states = append(states, st)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutingQuery, err)
	}
	return states, nil
}

func (l *localItemRepository) Delete(ctx context.Context, t models.ItemType, id string) error {
	query, args, err := sq.Delete("items").
		Where(sq.Eq{"type": t, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: delete item: %v", ErrBuildingSQLQuery, err)
	}

	if _, err = l.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete item %s/%s: %w", t, id, mapSQLiteError(err))
	}
	return nil
}

func (l *localItemRepository) Sweep(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sq.Delete("items").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: sweep items: %v", ErrBuildingSQLQuery, err)
	}

	res, err := l.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep tombstoned items: %w", mapSQLiteError(err))
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep rows affected: %w", err)
	}
	return int(removed), nil
}

func (l *localItemRepository) MigrateLegacy(ctx context.Context, deviceID string) (int, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Select("type", "id", "generation", "mutated_at", "origin_device", "payload").
		From("items").
		Where(sq.Or{sq.LtOrEq{"generation": 0}, sq.Eq{"origin_device": ""}}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: legacy items: %v", ErrBuildingSQLQuery, err)
	}

	rows, err := l.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExecutingQuery, err)
	}

	var legacy []models.Item
	for rows.Next() {
		item, scanErr := scanItem(rows)
		if scanErr != nil {
			rows.Close()
			return 0, scanErr
		}
		legacy = append(legacy, item)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("%w: %v", ErrExecutingQuery, err)
	}
	rows.Close()

	now := time.Now().UnixMilli()
	for i := range legacy {
		legacy[i].Generation = 1
		legacy[i].MutatedAt = now
		legacy[i].OriginDevice = deviceID
	}
	if len(legacy) > 0 {
		if err = l.Save(ctx, legacy...); err != nil {
			return 0, fmt.Errorf("rewrite legacy items: %w", err)
		}
		log.Info().Int("count", len(legacy)).Msg("migrated legacy items to sync metadata")
	}

	return len(legacy), nil
}

func (l *localItemRepository) RecordAgreement(ctx context.Context, states ...models.AgreedState) error {
	for _, st := range states {
		query, args, err := sq.Insert("sync_state").
			Columns("type", "item_id", "generation", "mutated_at", "agreed_at").
			Values(st.Type, st.ItemID, st.Generation, st.MutatedAt, st.AgreedAt).
			Suffix(`ON CONFLICT (type, item_id) DO UPDATE SET
				generation = excluded.generation,
				mutated_at = excluded.mutated_at,
				agreed_at = excluded.agreed_at`).
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: record agreement: %v", ErrBuildingSQLQuery, err)
		}

		if _, err = l.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("record agreement for %s: %w", st.ItemID, mapSQLiteError(err))
		}
	}
	return nil
}

func (l *localItemRepository) DeviceID(ctx context.Context) (string, error) {
	query, args, err := sq.Select("device_id").
		From("device").
		Where(sq.Eq{"k": "self"}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("%w: device id: %v", ErrBuildingSQLQuery, err)
	}

	var id string
	if err = l.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoDeviceIdentity
		}
		return "", fmt.Errorf("%w: %v", ErrScanningRow, err)
	}
	return id, nil
}

func (l *localItemRepository) SetDeviceID(ctx context.Context, id, label string) error {
	query, args, err := sq.Insert("device").
		Columns("k", "device_id", "label").
		Values("self", id, label).
		Suffix(`ON CONFLICT (k) DO UPDATE SET device_id = excluded.device_id, label = excluded.label`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: set device id: %v", ErrBuildingSQLQuery, err)
	}

	if _, err = l.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set device id: %w", mapSQLiteError(err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (models.Item, error) {
	var item models.Item
	var payload string

	if err := row.Scan(&item.Type, &item.ID, &item.Generation, &item.MutatedAt, &item.OriginDevice, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Item{}, err
		}
		return models.Item{}, fmt.Errorf("%w: %v", ErrScanningRow, err)
	}

	if err := json.Unmarshal([]byte(payload), &item.Payload); err != nil {
		return models.Item{}, fmt.Errorf("decode payload for item %s: %w", item.ID, err)
	}
	return item, nil
}
