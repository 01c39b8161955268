package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/asavelyev/notesync/internal/utils"
	"github.com/asavelyev/notesync/models"
)

type memObject struct {
	content   []byte
	token     string
	updatedAt int64
}

// memObjectStore is an in-process [ObjectStore] with the same conditional
// write semantics as the HTTP implementation. Tests run multiple devices
// against one shared instance to exercise concurrent reconciliation.
type memObjectStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	ids     *utils.UUIDGenerator
}

func NewMemObjectStore() ObjectStore {
	return &memObjectStore{
		objects: make(map[string]memObject),
		ids:     utils.NewUUIDGenerator(),
	}
}

func (m *memObjectStore) Get(_ context.Context, path string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[path]
	if !ok {
		return nil, "", fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	return append([]byte(nil), obj.content...), obj.token, nil
}

func (m *memObjectStore) Put(_ context.Context, path string, content []byte, expectedToken string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, exists := m.objects[path]
	switch {
	case expectedToken == "" && exists:
		return "", fmt.Errorf("put %s: create of existing object: %w", path, ErrTokenMismatch)
	case expectedToken != "" && !exists:
		return "", fmt.Errorf("put %s: %w", path, ErrNotFound)
	case expectedToken != "" && obj.token != expectedToken:
		return "", fmt.Errorf("put %s: %w", path, ErrTokenMismatch)
	}

	newToken := m.ids.Generate()
	m.objects[path] = memObject{
		content:   append([]byte(nil), content...),
		token:     newToken,
		updatedAt: time.Now().UnixMilli(),
	}
	return newToken, nil
}

func (m *memObjectStore) List(_ context.Context, dir string) ([]models.ObjectEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := strings.TrimRight(dir, "/") + "/"
	var entries []models.ObjectEntry
	for path, obj := range m.objects {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		// only direct children, no nested listings
		if strings.Contains(strings.TrimPrefix(path, prefix), "/") {
			continue
		}
		entries = append(entries, models.ObjectEntry{
			Path:      path,
			Token:     obj.token,
			UpdatedAt: obj.updatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (m *memObjectStore) Delete(_ context.Context, path string, expectedToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[path]
	if !ok {
		return fmt.Errorf("delete %s: %w", path, ErrNotFound)
	}
	if expectedToken != "" && obj.token != expectedToken {
		return fmt.Errorf("delete %s: %w", path, ErrTokenMismatch)
	}

	delete(m.objects, path)
	return nil
}
