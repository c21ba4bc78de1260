package votes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/mediatrack/internal/log"
	"github.com/nao1215/mediatrack/internal/model"
)

// maxResponseSize bounds decoded vote-store replies.
const maxResponseSize = 4 * 1024 * 1024

// Client is a Store backed by the vote-store HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			c := *cl.httpClient
			c.Timeout = d
			cl.httpClient = &c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tally fetches the counters for imageURL.
func (c *Client) Tally(ctx context.Context, imageURL string) (model.Tally, error) {
	if imageURL == "" {
		return model.Tally{}, ErrEmptyImageURL
	}

	var t model.Tally
	if err := c.do(ctx, http.MethodGet, "/api/votes/"+url.PathEscape(imageURL), nil, &t); err != nil {
		return model.Tally{}, err
	}
	if t.ImageURL == "" {
		t.ImageURL = imageURL
	}
	return t, nil
}

// Vote records one vote.
func (c *Client) Vote(ctx context.Context, imageURL string, isFake bool) (model.Tally, error) {
	if imageURL == "" {
		return model.Tally{}, ErrEmptyImageURL
	}

	body, err := json.Marshal(VoteRequest{ImageURL: imageURL, IsFake: isFake})
	if err != nil {
		return model.Tally{}, err
	}

	var resp VoteResponse
	if err := c.do(ctx, http.MethodPost, "/api/votes", body, &resp); err != nil {
		return model.Tally{}, err
	}
	if !resp.Success {
		return model.Tally{}, fmt.Errorf("%w: vote rejected: %s", ErrUnavailable, resp.Error)
	}
	if resp.Votes == nil {
		// Older servers only acknowledge the vote.
		return c.Tally(ctx, imageURL)
	}
	c.logger.Debug("vote recorded", "image_url", imageURL, "fake", isFake)
	return *resp.Votes, nil
}

// All fetches every tally.
func (c *Client) All(ctx context.Context) ([]model.Tally, error) {
	var tallies []model.Tally
	if err := c.do(ctx, http.MethodGet, "/api/votes", nil, &tallies); err != nil {
		return nil, err
	}
	return tallies, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var h HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return HealthResponse{}, err
	}
	return h, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned status %d", ErrUnavailable, method, path, resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: malformed response: %w", ErrUnavailable, err)
	}
	return nil
}
