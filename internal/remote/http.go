package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/utils"
	"github.com/asavelyev/notesync/models"
)

const (
	versionTokenHeader = "X-Version-Token"
	ifMatchHeader      = "If-Match"
)

type httpObjectStore struct {
	client *utils.HTTPClient
	token  string

	logger *logger.Logger
}

// NewHTTPObjectStore constructs the HTTP/REST implementation of
// [ObjectStore] speaking to the reference server's object API. It
// normalises and validates the base URL from cfg.Address and configures the
// underlying client with the resolved base URL and request timeout.
//
// Returns an error if cfg.Address is empty or cannot be parsed as a URL.
func NewHTTPObjectStore(cfg config.Remote, logger *logger.Logger) (ObjectStore, error) {
	client := utils.NewHTTPClient()
	baseURL, err := normalizeBaseURL(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid remote address: %w", err)
	}

	client.
		SetBaseURL(baseURL).
		SetTimeout(cfg.RequestTimeout)

	return &httpObjectStore{client: client, token: cfg.BearerToken, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [Authenticated]. It stores the bearer token
// (whitespace-trimmed) attached to all subsequent requests.
func (h *httpObjectStore) SetToken(token string) {
	h.token = strings.TrimSpace(token)
}

// Token implements [Authenticated].
func (h *httpObjectStore) Token() string {
	return h.token
}

// Get implements [ObjectStore]. It issues GET /api/objects/<path> and
// returns the body plus the X-Version-Token response header.
func (h *httpObjectStore) Get(ctx context.Context, path string) ([]byte, string, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetAuthToken(h.token).
		Get("/api/objects/" + path)
	if err != nil {
		return nil, "", fmt.Errorf("get %s: %w", path, err)
	}
	if err = mapHTTPError(resp.StatusCode(), resp.String()); err != nil {
		return nil, "", fmt.Errorf("get %s: %w", path, err)
	}

	return resp.Body(), resp.Header().Get(versionTokenHeader), nil
}

// Put implements [ObjectStore]. The expected token travels in the If-Match
// header; it is omitted entirely for first creation so the server can
// distinguish create from guarded update.
func (h *httpObjectStore) Put(ctx context.Context, path string, content []byte, expectedToken string) (string, error) {
	req := h.client.R().
		SetContext(ctx).
		SetAuthToken(h.token).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(content)
	if expectedToken != "" {
		req.SetHeader(ifMatchHeader, expectedToken)
	}

	resp, err := req.Put("/api/objects/" + path)
	if err != nil {
		return "", fmt.Errorf("put %s: %w", path, err)
	}
	if err = mapHTTPError(resp.StatusCode(), resp.String()); err != nil {
		return "", fmt.Errorf("put %s: %w", path, err)
	}

	return resp.Header().Get(versionTokenHeader), nil
}

// List implements [ObjectStore]. It issues GET /api/objects/?dir=<dir> and
// decodes the listing body.
func (h *httpObjectStore) List(ctx context.Context, dir string) ([]models.ObjectEntry, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetAuthToken(h.token).
		SetQueryParam("dir", dir).
		Get("/api/objects/")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	if err = mapHTTPError(resp.StatusCode(), resp.String()); err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var listing models.ObjectListing
	if err = json.Unmarshal(resp.Body(), &listing); err != nil {
		return nil, fmt.Errorf("list %s: %w: %v", dir, ErrMalformedContent, err)
	}

	return listing.Entries, nil
}

// Delete implements [ObjectStore].
func (h *httpObjectStore) Delete(ctx context.Context, path string, expectedToken string) error {
	req := h.client.R().
		SetContext(ctx).
		SetAuthToken(h.token)
	if expectedToken != "" {
		req.SetHeader(ifMatchHeader, expectedToken)
	}

	resp, err := req.Delete("/api/objects/" + path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if err = mapHTTPError(resp.StatusCode(), resp.String()); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}

	return nil
}
