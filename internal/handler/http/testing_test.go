// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/store"
	"github.com/asavelyev/notesync/internal/utils"
	"github.com/asavelyev/notesync/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ─────────────────────────────────────────────
// In-memory repository fakes
// ─────────────────────────────────────────────

type storedObject struct {
	content   []byte
	token     string
	updatedAt int64
}

// fakeObjectRepo implements store.ObjectRepository on a map with the same
// conditional-write semantics as the Postgres-backed repository.
type fakeObjectRepo struct {
	mu      sync.Mutex
	objects map[string]storedObject

	// failWith, when set, makes every call return this error.
	failWith error
}

func newFakeObjectRepo() *fakeObjectRepo {
	return &fakeObjectRepo{objects: make(map[string]storedObject)}
}

func (f *fakeObjectRepo) Get(_ context.Context, path string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, "", f.failWith
	}
	obj, ok := f.objects[path]
	if !ok {
		return nil, "", store.ErrObjectNotFound
	}
	return obj.content, obj.token, nil
}

func (f *fakeObjectRepo) Put(_ context.Context, path string, content []byte, expectedToken string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	current, exists := f.objects[path]
	if expectedToken == "" {
		if exists {
			return "", store.ErrTokenMismatch
		}
	} else {
		if !exists {
			return "", store.ErrObjectNotFound
		}
		if current.token != expectedToken {
			return "", store.ErrTokenMismatch
		}
	}
	token := uuid.NewString()
	f.objects[path] = storedObject{content: content, token: token}
	return token, nil
}

func (f *fakeObjectRepo) List(_ context.Context, dir string) ([]models.ObjectEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var entries []models.ObjectEntry
	for path, obj := range f.objects {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if strings.Contains(strings.TrimPrefix(path, prefix), "/") {
			continue
		}
		entries = append(entries, models.ObjectEntry{Path: path, Token: obj.token, UpdatedAt: obj.updatedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (f *fakeObjectRepo) Delete(_ context.Context, path string, expectedToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	current, exists := f.objects[path]
	if !exists {
		return nil
	}
	if expectedToken != "" && current.token != expectedToken {
		return store.ErrTokenMismatch
	}
	delete(f.objects, path)
	return nil
}

// fakeDeviceRepo implements store.DeviceRepository on a map, hashing
// secrets the same way the real repository does.
type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]models.Device

	createErr error
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]models.Device)}
}

func (f *fakeDeviceRepo) Create(_ context.Context, device models.Device) (models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return models.Device{}, f.createErr
	}
	if _, exists := f.devices[device.DeviceID]; exists {
		return models.Device{}, store.ErrDeviceExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(device.Secret), bcrypt.DefaultCost)
	if err != nil {
		return models.Device{}, err
	}
	device.Secret = ""
	device.SecretHash = string(hash)
	f.devices[device.DeviceID] = device
	return device, nil
}

func (f *fakeDeviceRepo) FindByID(_ context.Context, deviceID string) (models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	device, ok := f.devices[deviceID]
	if !ok {
		return models.Device{}, store.ErrDeviceNotFound
	}
	return device, nil
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

var testAppCfg = config.App{
	TokenSignKey:  "test-sign-key",
	TokenIssuer:   "notesync-test",
	TokenDuration: 24 * time.Hour,
}

type handlerFixture struct {
	handler *Handler
	objects *fakeObjectRepo
	devices *fakeDeviceRepo
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	objects := newFakeObjectRepo()
	devices := newFakeDeviceRepo()
	return &handlerFixture{
		handler: NewHandler(objects, devices, testAppCfg, logger.Nop()),
		objects: objects,
		devices: devices,
	}
}

// bearerToken issues a JWT accepted by the auth middleware.
func bearerToken(t *testing.T, deviceID string) string {
	t.Helper()
	token, err := utils.GenerateJWTToken(testAppCfg.TokenIssuer, deviceID, testAppCfg.TokenDuration, testAppCfg.TokenSignKey)
	require.NoError(t, err)
	return "Bearer " + token.SignedString
}

// deviceBody serialises a models.Device to a JSON request body string.
func deviceBody(t *testing.T, d models.Device) string {
	t.Helper()
	b, err := json.Marshal(d)
	require.NoError(t, err)
	return string(b)
}
