package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/unklstewy/atc-presence/internal/server"
	"github.com/unklstewy/atc-presence/pkg/presence"
)

// errNotPublished is returned while the service has nothing to report.
var errNotPublished = errors.New("no presence published yet")

// Client reads the presence HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Presence fetches the current activity.
func (c *Client) Presence(ctx context.Context) (presence.Activity, error) {
	var a presence.Activity
	err := c.get(ctx, "/api/v1/presence", &a)
	return a, err
}

// Session fetches the session counters.
func (c *Client) Session(ctx context.Context) (server.SessionResponse, error) {
	var s server.SessionResponse
	err := c.get(ctx, "/api/v1/session", &s)
	return s, err
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return errNotPublished
	default:
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
