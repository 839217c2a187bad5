package bgg

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"bgshelf-api/internal/logging"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "bgshelf-api/1.0"
)

// Config holds the remote endpoints.
type Config struct {
	CollectionURL string
	DetailURL     string
	ThingURL      string
	VideoURL      string
	Timeout       time.Duration
}

// Client talks to the board-game database: the xmlapi2 collection and thing
// endpoints plus the JSON collection-detail and video endpoints.
type Client struct {
	http *http.Client
	cfg  Config
}

// New creates a new client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		cfg:  cfg,
	}
}

// get executes a GET request and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, base string, query url.Values) ([]byte, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	logging.Debug().Str("url", u.String()).Msg("[BGGClient] Request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusAccepted:
		return nil, ErrQueued
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
