package remote

import "errors"

var (
	// ErrNotFound means the requested path does not exist on the remote.
	ErrNotFound = errors.New("remote object not found")

	// ErrTokenMismatch means the path's version token no longer matches
	// what the caller last observed. Expected during concurrent writes;
	// callers re-get, re-decide, and retry.
	ErrTokenMismatch = errors.New("version token mismatch")

	// ErrUnauthorized means no valid credential is configured. Fatal to
	// any sync attempt; never retried.
	ErrUnauthorized = errors.New("device unauthorized")

	// ErrRateLimited means the remote asked us to slow down. Treated as a
	// transient network error with longer backoff.
	ErrRateLimited = errors.New("rate limited by remote")

	// ErrMalformedContent means an object's content could not be decoded.
	// The affected item is skipped and logged; a pass is never aborted
	// because of it.
	ErrMalformedContent = errors.New("malformed remote content")

	ErrBadRequest          = errors.New("bad request")
	ErrInternalServerError = errors.New("remote internal error")
)
