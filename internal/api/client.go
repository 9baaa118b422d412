package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"drq/internal/config"
)

// ErrDaemonUnavailable reports that the daemon API could not be reached.
var ErrDaemonUnavailable = errors.New("daemon unavailable")

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
	Kind    string
}

func (e *Error) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("daemon returned %d (%s): %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

// Client provides HTTP access to the daemon API.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient builds a client for the API rooted at baseURL. A bare host:port is
// treated as http.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: base, token: strings.TrimSpace(token), http: httpClient}
}

// NewClientFromConfig targets the daemon bound at api.bind.
func NewClientFromConfig(cfg *config.Config) *Client {
	return NewClient(cfg.API.Bind, cfg.API.Token, nil)
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.base }

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Songs lists the song catalog.
func (c *Client) Songs(ctx context.Context) ([]Song, error) {
	var resp SongListResponse
	if err := c.do(ctx, http.MethodGet, "/api/songs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Songs, nil
}

// Play enqueues a song for playback.
func (c *Client) Play(ctx context.Context, req PlayRequest) (*Entry, error) {
	var resp EntryResponse
	if err := c.do(ctx, http.MethodPost, "/api/music/play", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Entry, nil
}

// Entries lists music entries, optionally filtered by status.
func (c *Client) Entries(ctx context.Context, status string) ([]Entry, error) {
	path := "/api/music/entries"
	if status = strings.TrimSpace(status); status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var resp EntryListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Retry resets a failed entry to pending.
func (c *Client) Retry(ctx context.Context, id string) (*RetryResponse, error) {
	var resp RetryResponse
	if err := c.do(ctx, http.MethodPost, "/api/music/entries/"+url.PathEscape(id)+"/retry", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear removes failed entries, or every entry when status is empty.
func (c *Client) Clear(ctx context.Context, status string) (int, error) {
	path := "/api/music/entries"
	if status = strings.TrimSpace(status); status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var resp ClearResponse
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// Venues lists saved venues. pendingOnly restricts the list to unsynced venues.
func (c *Client) Venues(ctx context.Context, pendingOnly bool) ([]Venue, error) {
	path := "/api/venues"
	if pendingOnly {
		path += "?pending=true"
	}
	var resp VenueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Venues, nil
}

// AddVenue saves a venue and attempts an immediate push.
func (c *Client) AddVenue(ctx context.Context, req AddVenueRequest) (*Venue, error) {
	var resp VenueResponse
	if err := c.do(ctx, http.MethodPost, "/api/venues", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Venue, nil
}

// SyncVenues runs a reconciliation sweep now.
func (c *Client) SyncVenues(ctx context.Context) (*Sweep, error) {
	var resp SweepResponse
	if err := c.do(ctx, http.MethodPost, "/api/venues/sync", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Sweep, nil
}

// RetryVenues pushes every unsynced venue one at a time.
func (c *Client) RetryVenues(ctx context.Context) (*VenueRetryResponse, error) {
	var resp VenueRetryResponse
	if err := c.do(ctx, http.MethodPost, "/api/venues/retry", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w at %s: %v", ErrDaemonUnavailable, c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &Error{Status: resp.StatusCode}
		var decoded ErrorResponse
		if json.Unmarshal(raw, &decoded) == nil && decoded.Error != "" {
			apiErr.Message = decoded.Error
			apiErr.Kind = decoded.Kind
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
