// Package trello is a small client for the Trello REST API.
package trello

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"bgshelf-api/internal/logging"
	"bgshelf-api/internal/model"
)

const defaultBaseURL = "https://api.trello.com/1"

var (
	// ErrUnauthorized is returned when Trello rejects the key or token.
	ErrUnauthorized = errors.New("trello: unauthorized")
	// ErrNotConfigured is returned when no API key was configured.
	ErrNotConfigured = errors.New("trello: api key not configured")
)

// APIError is a non-2xx answer from Trello.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trello %s: status %d: %s", e.Path, e.StatusCode, e.Body)
}

// Config holds the Trello settings.
type Config struct {
	Key     string
	BoardID string
	BaseURL string
	Timeout time.Duration
}

// Member is the authorized Trello member.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

// NewCard describes a card to create.
type NewCard struct {
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	ListID string `json:"idList"`
}

// Client calls the Trello API on behalf of a user token.
type Client struct {
	http *http.Client
	cfg  Config
}

// New creates a new Trello client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{http: &http.Client{Timeout: cfg.Timeout}, cfg: cfg}
}

// Key returns the configured API key.
func (c *Client) Key() string {
	return c.cfg.Key
}

// Lists returns the lists of the configured board.
func (c *Client) Lists(ctx context.Context, token string) ([]model.TrelloList, error) {
	var lists []model.TrelloList
	if err := c.do(ctx, http.MethodGet, "/boards/"+url.PathEscape(c.cfg.BoardID)+"/lists", token, nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// Me returns the member owning token.
func (c *Client) Me(ctx context.Context, token string) (*Member, error) {
	var m Member
	if err := c.do(ctx, http.MethodGet, "/members/me", token, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateCard creates a card and returns it.
func (c *Client) CreateCard(ctx context.Context, token string, card NewCard) (*model.TrelloCard, error) {
	var created struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		ShortURL string `json:"shortUrl"`
	}
	if err := c.do(ctx, http.MethodPost, "/cards", token, card, &created); err != nil {
		return nil, err
	}
	return &model.TrelloCard{ID: created.ID, Name: created.Name, URL: created.ShortURL}, nil
}

// AddMember assigns memberID to the card.
func (c *Client) AddMember(ctx context.Context, token, cardID, memberID string) error {
	return c.do(ctx, http.MethodPost, "/cards/"+url.PathEscape(cardID)+"/idMembers", token,
		map[string]string{"value": memberID}, nil)
}

// Vote records memberID's vote on the card.
func (c *Client) Vote(ctx context.Context, token, cardID, memberID string) error {
	return c.do(ctx, http.MethodPost, "/cards/"+url.PathEscape(cardID)+"/membersVoted", token,
		map[string]string{"value": memberID}, nil)
}

// Attach adds a URL attachment to the card.
func (c *Client) Attach(ctx context.Context, token, cardID, link string) error {
	return c.do(ctx, http.MethodPost, "/cards/"+url.PathEscape(cardID)+"/attachments", token,
		map[string]string{"url": link}, nil)
}

// AddLabel creates a label on the card.
func (c *Client) AddLabel(ctx context.Context, token, cardID, name, color string) error {
	body := map[string]string{"name": name}
	if color != "" {
		body["color"] = color
	}
	return c.do(ctx, http.MethodPost, "/cards/"+url.PathEscape(cardID)+"/labels", token, body, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	if c.cfg.Key == "" {
		return ErrNotConfigured
	}

	query := url.Values{}
	query.Set("key", c.cfg.Key)
	query.Set("token", token)

	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path+"?"+query.Encode(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.Debug().Str("method", method).Str("path", path).Msg("[TrelloClient] Request")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trello %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, strings.TrimSpace(string(data)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{StatusCode: resp.StatusCode, Path: path, Body: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
