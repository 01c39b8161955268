package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/store"
	"github.com/asavelyev/notesync/models"
	"github.com/go-chi/chi/v5"
)

const (
	versionTokenHeader = "X-Version-Token"
	ifMatchHeader      = "If-Match"
)

// objectPath extracts and validates the object path from the chi wildcard.
func objectPath(r *http.Request) (string, bool) {
	path := strings.Trim(chi.URLParam(r, "*"), "/")
	if path == "" || strings.Contains(path, "..") {
		return "", false
	}
	return path, true
}

func (h *Handler) getObject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	path, ok := objectPath(r)
	if !ok {
		http.Error(w, "invalid object path", http.StatusBadRequest)
		return
	}

	content, token, err := h.objects.Get(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrObjectNotFound) {
			http.Error(w, "object not found", http.StatusNotFound)
			return
		}
		log.Err(err).Str("path", path).Msg("failed to read object")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(versionTokenHeader, token)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// putObject writes an object under optimistic concurrency. An absent
// If-Match header means create-only; a present one guards the update
// against the given version token. Mismatches answer 409.
func (h *Handler) putObject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	path, ok := objectPath(r)
	if !ok {
		http.Error(w, "invalid object path", http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	expectedToken := r.Header.Get(ifMatchHeader)
	newToken, err := h.objects.Put(ctx, path, content, expectedToken)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrTokenMismatch):
			http.Error(w, "version token mismatch", http.StatusConflict)
			return
		case errors.Is(err, store.ErrObjectNotFound):
			http.Error(w, "object not found", http.StatusNotFound)
			return
		default:
			log.Err(err).Str("path", path).Msg("failed to write object")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set(versionTokenHeader, newToken)
	if expectedToken == "" {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) deleteObject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	path, ok := objectPath(r)
	if !ok {
		http.Error(w, "invalid object path", http.StatusBadRequest)
		return
	}

	// Existence check first so a vanished object answers 404, which the
	// sync client treats as already-deleted.
	if _, _, err := h.objects.Get(ctx, path); err != nil {
		if errors.Is(err, store.ErrObjectNotFound) {
			http.Error(w, "object not found", http.StatusNotFound)
			return
		}
		log.Err(err).Str("path", path).Msg("failed to read object before delete")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := h.objects.Delete(ctx, path, r.Header.Get(ifMatchHeader)); err != nil {
		switch {
		case errors.Is(err, store.ErrTokenMismatch):
			http.Error(w, "version token mismatch", http.StatusConflict)
			return
		default:
			log.Err(err).Str("path", path).Msg("failed to delete object")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listObjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	dir := strings.Trim(r.URL.Query().Get("dir"), "/")
	if dir == "" {
		http.Error(w, "dir query parameter is required", http.StatusBadRequest)
		return
	}

	entries, err := h.objects.List(ctx, dir)
	if err != nil {
		log.Err(err).Str("dir", dir).Msg("failed to list objects")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	listing := models.ObjectListing{Dir: dir, Entries: entries}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err = json.NewEncoder(w).Encode(listing); err != nil {
		log.Err(err).Msg("failed to encode listing")
	}
}
