package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/store"
	"github.com/asavelyev/notesync/models"
)

// memLocalStore is an in-memory store.LocalStorage used across the service
// tests. It mirrors the SQLite repository's observable behavior without
// the database.
type memLocalStore struct {
	mu       sync.Mutex
	items    map[models.ItemType]map[string]models.Item
	agreed   map[string]models.AgreedState
	deviceID string
	loads    map[string]int // id -> Get calls

	saveErr error // injected failure for the next Save
}

func newMemLocalStore(deviceID string) *memLocalStore {
	items := make(map[models.ItemType]map[string]models.Item, len(models.ItemTypes))
	for _, t := range models.ItemTypes {
		items[t] = make(map[string]models.Item)
	}
	return &memLocalStore{
		items:    items,
		agreed:   make(map[string]models.AgreedState),
		deviceID: deviceID,
		loads:    make(map[string]int),
	}
}

func (m *memLocalStore) Save(_ context.Context, items ...models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		err := m.saveErr
		m.saveErr = nil
		return err
	}
	for _, item := range items {
		m.items[item.Type][item.ID] = item
	}
	return nil
}

func (m *memLocalStore) Get(_ context.Context, t models.ItemType, id string) (models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads[id]++
	item, ok := m.items[t][id]
	if !ok {
		return models.Item{}, fmt.Errorf("item %s/%s: %w", t, id, store.ErrItemNotFound)
	}
	return item, nil
}

func (m *memLocalStore) GetAll(_ context.Context, t models.ItemType) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Item
	for _, item := range m.items[t] {
		out = append(out, item)
	}
	return out, nil
}

func (m *memLocalStore) States(_ context.Context, t models.ItemType) ([]models.ItemState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ItemState
	for _, item := range m.items[t] {
		out = append(out, item.State())
	}
	return out, nil
}

func (m *memLocalStore) Delete(_ context.Context, t models.ItemType, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items[t], id)
	return nil
}

func (m *memLocalStore) Sweep(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, id := range ids {
		for _, t := range models.ItemTypes {
			if _, ok := m.items[t][id]; ok {
				delete(m.items[t], id)
				removed++
			}
		}
	}
	return removed, nil
}

func (m *memLocalStore) MigrateLegacy(_ context.Context, deviceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	migrated := 0
	for _, t := range models.ItemTypes {
		for id, item := range m.items[t] {
			if item.Generation <= 0 || item.OriginDevice == "" {
				item.Generation = 1
				item.MutatedAt = time.Now().UnixMilli()
				item.OriginDevice = deviceID
				m.items[t][id] = item
				migrated++
			}
		}
	}
	return migrated, nil
}

func (m *memLocalStore) RecordAgreement(_ context.Context, states ...models.AgreedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range states {
		m.agreed[st.ItemID] = st
	}
	return nil
}

func (m *memLocalStore) DeviceID(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deviceID == "" {
		return "", store.ErrNoDeviceIdentity
	}
	return m.deviceID, nil
}

func (m *memLocalStore) SetDeviceID(_ context.Context, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deviceID = id
	return nil
}

func (m *memLocalStore) loadedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.loads))
	for id := range m.loads {
		out = append(out, id)
	}
	return out
}

func (m *memLocalStore) resetLoads() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = make(map[string]int)
}

func (m *memLocalStore) mustGet(t models.ItemType, id string) (models.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[t][id]
	return item, ok
}

// spyRunner records FullSync calls for queue and poller tests.
type spyRunner struct {
	mu     sync.Mutex
	calls  []models.SyncScope
	err    error
	block  chan struct{} // when non-nil, FullSync waits on it
	notify chan models.SyncScope
}

func (s *spyRunner) FullSync(_ context.Context, scope models.SyncScope) error {
	s.mu.Lock()
	s.calls = append(s.calls, scope)
	block := s.block
	err := s.err
	s.mu.Unlock()

	if s.notify != nil {
		s.notify <- scope
	}
	if block != nil {
		<-block
	}
	return err
}

func (s *spyRunner) scopes() []models.SyncScope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncScope, len(s.calls))
	copy(out, s.calls)
	return out
}

// fastSyncCfg keeps test timing tight: millisecond debounce and drain.
func fastSyncCfg() config.Sync {
	return config.Sync{
		DebounceWindow:     10 * time.Millisecond,
		DrainDelay:         time.Millisecond,
		MaxPushAttempts:    3,
		TombstoneRetention: 7 * 24 * time.Hour,
		PollInterval:       10 * time.Millisecond,
		EditPause:          50 * time.Millisecond,
	}
}

func notePayload(title, body string, tags ...string) models.Payload {
	return models.Payload{
		Type: models.TypeNote,
		Note: &models.NotePayload{Title: title, Body: body, Tags: tags},
	}
}

func noteStateAt(id string, gen int64, origin string, mutatedAt int64, p models.Payload) models.ItemState {
	it := noteItemAt(id, gen, origin, mutatedAt, p)
	return it.State()
}

func noteItemAt(id string, gen int64, origin string, mutatedAt int64, p models.Payload) models.Item {
	return models.Item{
		ID:           id,
		Type:         models.TypeNote,
		Generation:   gen,
		MutatedAt:    mutatedAt,
		OriginDevice: origin,
		Payload:      p,
	}
}
