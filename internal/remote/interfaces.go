// SPDX-License-Identifier: Apache-2.0

// Package remote provides the object-store abstraction the sync engine
// reconciles against.
//
// The primary abstraction is [ObjectStore]: a per-path store with get,
// token-guarded conditional put, directory listing, and token-guarded
// delete. No multi-path transactions exist; every cross-item operation in
// the sync engine is reconciled item by item so that none are needed.
//
// Two implementations ship with the package: an HTTP/REST client
// ([NewHTTPObjectStore]) speaking to the reference server, and an in-memory
// store ([NewMemObjectStore]) used by tests and offline development.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so callers can use [errors.Is] for transport-agnostic
// handling (e.g. [ErrTokenMismatch] for 409, [ErrUnauthorized] for 401).
package remote

import (
	"context"

	"github.com/asavelyev/notesync/models"
)

// ObjectStore is the remote store contract. All writes are conditional: an
// empty expectedToken is valid only for first creation of a path, and a
// token mismatch surfaces [ErrTokenMismatch], meaning the caller must
// re-Get, re-decide, and retry.
type ObjectStore interface {
	// Get returns the object's content and its current version token.
	// Returns [ErrNotFound] if the path does not exist.
	Get(ctx context.Context, path string) (content []byte, token string, err error)

	// Put writes content under path, guarded by expectedToken. An empty
	// expectedToken requires the path to not exist yet. Returns the new
	// version token, or [ErrTokenMismatch] if the guard failed.
	Put(ctx context.Context, path string, content []byte, expectedToken string) (newToken string, err error)

	// List returns the entries directly under dir with their current
	// version tokens. A missing directory yields an empty listing, not an
	// error.
	List(ctx context.Context, dir string) ([]models.ObjectEntry, error)

	// Delete removes the object at path, guarded by expectedToken.
	// Returns [ErrTokenMismatch] on guard failure and [ErrNotFound] if the
	// path does not exist.
	Delete(ctx context.Context, path string, expectedToken string) error
}

// Authenticated is implemented by stores that carry a bearer credential.
// The engine checks it before a pass so a missing or expired credential
// fails fast instead of producing a pass full of 401s.
type Authenticated interface {
	// SetToken stores the bearer token attached to subsequent requests.
	SetToken(token string)

	// Token returns the currently stored bearer token, or "".
	Token() string
}
