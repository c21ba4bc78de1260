package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultVoteStoreURL is where the vote-store service listens by default.
	DefaultVoteStoreURL = "http://localhost:3000"

	// DefaultClassifierURL is the deepfake classifier endpoint.
	DefaultClassifierURL = "http://127.0.0.1:8000/api/detect/"

	// DefaultControlAddr is the control-protocol listener address.
	// Loopback only: the protocol can read the clipboard.
	DefaultControlAddr = "127.0.0.1:7878"

	// DefaultServeAddr is the listen address of the bundled vote-store server.
	DefaultServeAddr = ":3000"

	// DefaultRequestTimeout of zero leaves collaborator requests unbounded.
	DefaultRequestTimeout = time.Duration(0)

	// DefaultMaxImageDimension bounds the longest side of classifier payloads.
	DefaultMaxImageDimension = 1024

	// DefaultJPEGQuality is the quality used for rasterized payloads.
	DefaultJPEGQuality = 92

	// DefaultTallyConcurrency bounds concurrent initial tally fetches.
	DefaultTallyConcurrency = 4

	// DefaultPulseDuration is how long a vote control stays highlighted.
	DefaultPulseDuration = 500 * time.Millisecond

	// DefaultUserAgent identifies mediatrack when loading pages and resources.
	DefaultUserAgent = "mediatrack/1.0 (+https://github.com/nao1215/mediatrack)"

	// DefaultMaxBodySize limits pages and images loaded over HTTP.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// AppName is the application name used for XDG directory paths.
	AppName = "mediatrack"
)

// Config holds all configuration options for mediatrack.
// It is populated from defaults, the config file and CLI flags, and passed
// to components explicitly.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., VoteConfig, BrowserConfig) for simplicity. Each component reads
// the handful of fields it needs, and the file format mirrors the struct
// one key per field.
type Config struct {
	// VoteStoreURL is the base URL of the vote-store HTTP service.
	VoteStoreURL string

	// UseLocalVotes switches vote storage to the on-disk fallback instead
	// of the remote vote store.
	UseLocalVotes bool

	// LocalStoreDir is the directory of the on-disk vote fallback.
	LocalStoreDir string

	// ClassifierURL is the full URL of the classifier detect endpoint.
	ClassifierURL string

	// RequestTimeout bounds each collaborator request. Zero means no timeout,
	// in which case a hung request leaves its control pending.
	RequestTimeout time.Duration

	// ControlAddr is the host:port of the control-protocol WebSocket listener.
	ControlAddr string

	// ServeAddr is the listen address of `mediatrack serve`.
	ServeAddr string

	// DBDir is the directory holding the vote-store SQLite database.
	DBDir string

	// MaxImageDimension bounds the longest side of classifier payloads in pixels.
	MaxImageDimension int

	// JPEGQuality is the JPEG quality for rasterized payloads (1..100).
	JPEGQuality int

	// TallyConcurrency bounds concurrent tally fetches after start.
	TallyConcurrency int

	// PulseDuration is how long a clicked vote control stays highlighted.
	PulseDuration time.Duration

	// Browser drives a live Chromium tab instead of the in-memory page model.
	Browser bool

	// Headless runs Chromium without a window. Only used with Browser.
	Headless bool

	// UserAgent is sent when loading pages and resources.
	UserAgent string

	// MaxBodySize limits bytes read for pages and images.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit configuration file path, if any.
	ConfigFilePath string
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because most defaults are non-zero (endpoints, JPEG quality,
// concurrency). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		VoteStoreURL:      DefaultVoteStoreURL,
		LocalStoreDir:     filepath.Join(XDGDataDir(), "votes"),
		ClassifierURL:     DefaultClassifierURL,
		RequestTimeout:    DefaultRequestTimeout,
		ControlAddr:       DefaultControlAddr,
		ServeAddr:         DefaultServeAddr,
		DBDir:             XDGDataDir(),
		MaxImageDimension: DefaultMaxImageDimension,
		JPEGQuality:       DefaultJPEGQuality,
		TallyConcurrency:  DefaultTallyConcurrency,
		PulseDuration:     DefaultPulseDuration,
		Headless:          true,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for mediatrack.
// On Linux: ~/.local/share/mediatrack
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for mediatrack.
// On Linux: ~/.config/mediatrack
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// It is called once after the config file and flags are applied, before
// any component is constructed, so a bad endpoint fails the command up front.
func (c *Config) Validate() error {
	if !c.UseLocalVotes && !isHTTPURL(c.VoteStoreURL) {
		return ErrInvalidVoteStoreURL
	}
	if c.UseLocalVotes && c.LocalStoreDir == "" {
		return ErrEmptyLocalStoreDir
	}
	if !isHTTPURL(c.ClassifierURL) {
		return ErrInvalidClassifierURL
	}
	if c.RequestTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.MaxImageDimension <= 0 {
		return ErrInvalidImageDimension
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return ErrInvalidJPEGQuality
	}
	if c.TallyConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.ControlAddr == "" {
		return ErrEmptyControlAddr
	}
	return nil
}

// isHTTPURL reports whether raw is an absolute http or https URL.
func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
