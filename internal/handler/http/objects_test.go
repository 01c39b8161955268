// SPDX-License-Identifier: Apache-2.0

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asavelyev/notesync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doObjectRequest routes an authenticated request through the full router so
// that middleware and chi wildcard parameters behave as in production.
func doObjectRequest(t *testing.T, fx *handlerFixture, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", bearerToken(t, "laptop-1"))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	fx.handler.Init().ServeHTTP(rec, req)
	return rec
}

// ─────────────────────────────────────────────
// PUT /api/objects/*
// ─────────────────────────────────────────────

func TestPutObject_CreateReturns201AndToken(t *testing.T) {
	fx := newHandlerFixture(t)

	rec := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte(`{"id":"n1"}`), nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(versionTokenHeader))
}

func TestPutObject_CreateOverExistingConflicts(t *testing.T) {
	fx := newHandlerFixture(t)

	first := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("v1"), nil)
	require.Equal(t, http.StatusCreated, first.Code)

	// A second unconditional write means a concurrent create lost the race.
	second := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("v2"), nil)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestPutObject_ConditionalUpdate(t *testing.T) {
	fx := newHandlerFixture(t)

	created := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("v1"), nil)
	require.Equal(t, http.StatusCreated, created.Code)
	token := created.Header().Get(versionTokenHeader)

	updated := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("v2"),
		map[string]string{ifMatchHeader: token})
	require.Equal(t, http.StatusOK, updated.Code)

	newToken := updated.Header().Get(versionTokenHeader)
	assert.NotEmpty(t, newToken)
	assert.NotEqual(t, token, newToken)
}

func TestPutObject_StaleTokenConflicts(t *testing.T) {
	fx := newHandlerFixture(t)

	created := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("v1"), nil)
	stale := created.Header().Get(versionTokenHeader)

	updated := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("v2"),
		map[string]string{ifMatchHeader: stale})
	require.Equal(t, http.StatusOK, updated.Code)

	rec := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("v3"),
		map[string]string{ifMatchHeader: stale})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPutObject_UpdateOfMissingObjectIs404(t *testing.T) {
	fx := newHandlerFixture(t)

	rec := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/gone", []byte("v1"),
		map[string]string{ifMatchHeader: "some-token"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutObject_PathTraversalRejected(t *testing.T) {
	fx := newHandlerFixture(t)

	rec := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/../secrets", []byte("v1"), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ─────────────────────────────────────────────
// GET /api/objects/*
// ─────────────────────────────────────────────

func TestGetObject_ReturnsContentAndToken(t *testing.T) {
	fx := newHandlerFixture(t)

	created := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("hello"), nil)
	token := created.Header().Get(versionTokenHeader)

	rec := doObjectRequest(t, fx, http.MethodGet, "/api/objects/items/note/n1", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, token, rec.Header().Get(versionTokenHeader))
}

func TestGetObject_Missing(t *testing.T) {
	fx := newHandlerFixture(t)

	rec := doObjectRequest(t, fx, http.MethodGet, "/api/objects/items/note/ghost", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetObject_RepositoryFailure(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.objects.failWith = errors.New("connection refused")

	rec := doObjectRequest(t, fx, http.MethodGet, "/api/objects/items/note/n1", nil, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ─────────────────────────────────────────────
// DELETE /api/objects/*
// ─────────────────────────────────────────────

func TestDeleteObject_Unconditional(t *testing.T) {
	fx := newHandlerFixture(t)

	doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("v1"), nil)

	rec := doObjectRequest(t, fx, http.MethodDelete, "/api/objects/items/note/n1", nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	gone := doObjectRequest(t, fx, http.MethodGet, "/api/objects/items/note/n1", nil, nil)
	assert.Equal(t, http.StatusNotFound, gone.Code)
}

func TestDeleteObject_StaleTokenConflicts(t *testing.T) {
	fx := newHandlerFixture(t)

	created := doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("v1"), nil)
	stale := created.Header().Get(versionTokenHeader)
	doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("v2"),
		map[string]string{ifMatchHeader: stale})

	rec := doObjectRequest(t, fx, http.MethodDelete, "/api/objects/items/note/n1", nil,
		map[string]string{ifMatchHeader: stale})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteObject_Missing(t *testing.T) {
	fx := newHandlerFixture(t)

	rec := doObjectRequest(t, fx, http.MethodDelete, "/api/objects/items/note/ghost", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ─────────────────────────────────────────────
// GET /api/objects/?dir=
// ─────────────────────────────────────────────

func TestListObjects_DirectChildrenOnly(t *testing.T) {
	fx := newHandlerFixture(t)

	doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n1", []byte("a"), nil)
	doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/note/n2", []byte("b"), nil)
	doObjectRequest(t, fx, http.MethodPut, "/api/objects/items/list/l1", []byte("c"), nil)

	rec := doObjectRequest(t, fx, http.MethodGet, "/api/objects/?dir=items/note", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing models.ObjectListing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, "items/note", listing.Dir)
	require.Len(t, listing.Entries, 2)
	assert.Equal(t, "items/note/n1", listing.Entries[0].Path)
	assert.Equal(t, "items/note/n2", listing.Entries[1].Path)
	assert.NotEmpty(t, listing.Entries[0].Token)
}

func TestListObjects_EmptyDirParam(t *testing.T) {
	fx := newHandlerFixture(t)

	rec := doObjectRequest(t, fx, http.MethodGet, "/api/objects/", nil, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
