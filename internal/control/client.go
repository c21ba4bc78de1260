package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nao1215/mediatrack/internal/log"
)

// Client sends control requests to a running session.
// It is safe for concurrent use; requests are sent one at a time.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger
	mu     sync.Mutex
}

// ClientOption configures a Client.
type ClientOption func(*dialConfig)

type dialConfig struct {
	logger      *slog.Logger
	dialTimeout time.Duration
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *dialConfig) {
		c.logger = l
	}
}

// WithDialTimeout bounds the connection handshake.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *dialConfig) {
		c.dialTimeout = d
	}
}

// URL returns the control endpoint URL for a host:port address.
func URL(addr string) string {
	u := url.URL{Scheme: "ws", Host: addr, Path: Path}
	return u.String()
}

// Dial connects to the control endpoint at addr (host:port or ws:// URL).
// A connection failure is reported as ErrNoListener.
func Dial(ctx context.Context, addr string, opts ...ClientOption) (*Client, error) {
	cfg := dialConfig{
		logger:      log.Discard(),
		dialTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	target := addr
	if !strings.HasPrefix(target, "ws://") && !strings.HasPrefix(target, "wss://") {
		target = URL(addr)
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrNoListener, target, err)
	}
	conn.SetReadLimit(64 << 20)

	cfg.logger.Debug("control connected", slog.String("url", target))
	return &Client{conn: conn, logger: cfg.logger}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}

// Do sends a request of type t and decodes the response payload into out.
// out may be nil when the payload is not needed.
func (c *Client) Do(ctx context.Context, t Type, payload, out any) error {
	req := Envelope{ID: uuid.NewString(), Type: t}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		req.Payload = data
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		_ = c.conn.SetReadDeadline(deadline)
		defer func() {
			_ = c.conn.SetWriteDeadline(time.Time{})
			_ = c.conn.SetReadDeadline(time.Time{})
		}()
	}

	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send %s: %w", t, err)
	}

	for {
		var resp Envelope
		if err := c.conn.ReadJSON(&resp); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("failed to read %s response: %w", t, err)
		}
		if resp.ID != req.ID {
			c.logger.Debug("dropping stale control response", slog.String("id", resp.ID))
			continue
		}
		return decodeResponse(resp, out)
	}
}

func decodeResponse(resp Envelope, out any) error {
	if resp.Error != "" {
		if strings.HasPrefix(resp.Error, ErrUnknownRequest.Error()) {
			return fmt.Errorf("%w: %s", ErrUnknownRequest, resp.Type)
		}
		return fmt.Errorf("%w: %s", ErrRequestFailed, resp.Error)
	}
	if out == nil || len(resp.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Payload, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", resp.Type, err)
	}
	return nil
}

// Start sends START_DETECTION and returns the number of tracked elements.
func (c *Client) Start(ctx context.Context) (int, error) {
	var resp StartResponse
	if err := c.Do(ctx, TypeStartDetection, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Stop sends STOP_DETECTION.
func (c *Client) Stop(ctx context.Context) error {
	var resp StopResponse
	if err := c.Do(ctx, TypeStopDetection, nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return ErrRequestFailed
	}
	return nil
}

// Status sends GET_DETECTION_STATUS.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	err := c.Do(ctx, TypeGetDetectionStatus, nil, &resp)
	return resp, err
}

// ImageData sends GET_IMAGE_DATA for src and returns the data URL.
func (c *Client) ImageData(ctx context.Context, src string) (string, error) {
	var resp ImageDataResponse
	if err := c.Do(ctx, TypeGetImageData, ImageDataRequest{Src: src}, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrRequestFailed, resp.Error)
	}
	return resp.Base64, nil
}

// ClipboardImage sends GET_CLIPBOARD_IMAGE and returns the data URL.
func (c *Client) ClipboardImage(ctx context.Context) (string, error) {
	var resp ClipboardResponse
	if err := c.Do(ctx, TypeGetClipboardImage, nil, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrRequestFailed, resp.Error)
	}
	return resp.ImageData, nil
}

// ArticleText sends GET_ARTICLE_TEXT.
func (c *Client) ArticleText(ctx context.Context) (string, error) {
	var resp ArticleTextResponse
	err := c.Do(ctx, TypeGetArticleText, nil, &resp)
	return resp.Text, err
}

// IsNoListener reports whether err means no session was reachable.
func IsNoListener(err error) bool {
	return errors.Is(err, ErrNoListener)
}
