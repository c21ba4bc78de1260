package dom

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Loader fetches the bytes behind a resolved resource URL.
type Loader interface {
	Load(ctx context.Context, rawURL string) ([]byte, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, rawURL string) ([]byte, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, rawURL string) ([]byte, error) {
	return f(ctx, rawURL)
}

// MemoryLoader serves resources from a map keyed by absolute URL.
type MemoryLoader map[string][]byte

// Load returns the stored bytes or an error.
func (m MemoryLoader) Load(_ context.Context, rawURL string) ([]byte, error) {
	data, ok := m[rawURL]
	if !ok {
		return nil, fmt.Errorf("resource not found: %s", rawURL)
	}
	return data, nil
}

// FetchLoader loads http(s) and file resources.
type FetchLoader struct {
	// client performs HTTP requests.
	client *http.Client

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the bytes read per resource.
	maxBodySize int64
}

// FetchOption configures a FetchLoader.
type FetchOption func(*FetchLoader)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetchOption {
	return func(l *FetchLoader) {
		l.userAgent = ua
	}
}

// WithMaxBodySize limits the bytes read per resource.
func WithMaxBodySize(size int64) FetchOption {
	return func(l *FetchLoader) {
		if size > 0 {
			l.maxBodySize = size
		}
	}
}

// NewFetchLoader creates a FetchLoader. A nil client means http.DefaultClient.
func NewFetchLoader(client *http.Client, opts ...FetchOption) *FetchLoader {
	if client == nil {
		client = http.DefaultClient
	}
	l := &FetchLoader{
		client:      client,
		userAgent:   "mediatrack/1.0",
		maxBodySize: 10 * 1024 * 1024, // 10MB
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches rawURL.
func (l *FetchLoader) Load(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid resource URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		f, err := os.Open(u.Path) //nolint:gosec // Local pages are opened on purpose
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, l.maxBodySize))
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported resource scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(io.LimitReader(resp.Body, l.maxBodySize))
}

// PageURL turns a command-line target into a URL. Existing local paths
// become file:// URLs; everything else is treated as http(s), with http
// assumed when no scheme is given.
func PageURL(target string) (string, error) {
	if _, err := os.Stat(target); err == nil {
		abs, err := filepath.Abs(target)
		if err != nil {
			return "", err
		}
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
	}
	if !strings.Contains(target, "://") {
		target = "http://" + target
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid page URL: %w", err)
	}
	return u.String(), nil
}

// Open loads and parses the page at pageURL. The loader also serves the
// page's resources unless opts override it.
func Open(ctx context.Context, loader Loader, pageURL string, opts ...Option) (*Page, error) {
	data, err := loader.Load(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}
	opts = append([]Option{WithLoader(loader)}, opts...)
	return Parse(strings.NewReader(string(data)), pageURL, opts...)
}
