package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".mediatrack"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the on-disk shape of the .mediatrack configuration file.
// Zero values mean "not set" and leave the current value alone.
//
// Booleans are pointers so an explicit false in the file can override a
// default of true.
type File struct {
	VoteStoreURL      string        `yaml:"vote_store_url,omitempty"`
	UseLocalVotes     *bool         `yaml:"use_local_votes,omitempty"`
	LocalStoreDir     string        `yaml:"local_store_dir,omitempty"`
	ClassifierURL     string        `yaml:"classifier_url,omitempty"`
	RequestTimeout    time.Duration `yaml:"request_timeout,omitempty"`
	ControlAddr       string        `yaml:"control_addr,omitempty"`
	ServeAddr         string        `yaml:"serve_addr,omitempty"`
	DBDir             string        `yaml:"db_dir,omitempty"`
	MaxImageDimension int           `yaml:"max_image_dimension,omitempty"`
	JPEGQuality       int           `yaml:"jpeg_quality,omitempty"`
	TallyConcurrency  int           `yaml:"tally_concurrency,omitempty"`
	PulseDuration     time.Duration `yaml:"pulse_duration,omitempty"`
	Headless          *bool         `yaml:"headless,omitempty"`
	UserAgent         string        `yaml:"user_agent,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Apply copies every value set in f onto c.
func (f *File) Apply(c *Config) {
	if f == nil {
		return
	}
	if f.VoteStoreURL != "" {
		c.VoteStoreURL = f.VoteStoreURL
	}
	if f.UseLocalVotes != nil {
		c.UseLocalVotes = *f.UseLocalVotes
	}
	if f.LocalStoreDir != "" {
		c.LocalStoreDir = f.LocalStoreDir
	}
	if f.ClassifierURL != "" {
		c.ClassifierURL = f.ClassifierURL
	}
	if f.RequestTimeout != 0 {
		c.RequestTimeout = f.RequestTimeout
	}
	if f.ControlAddr != "" {
		c.ControlAddr = f.ControlAddr
	}
	if f.ServeAddr != "" {
		c.ServeAddr = f.ServeAddr
	}
	if f.DBDir != "" {
		c.DBDir = f.DBDir
	}
	if f.MaxImageDimension != 0 {
		c.MaxImageDimension = f.MaxImageDimension
	}
	if f.JPEGQuality != 0 {
		c.JPEGQuality = f.JPEGQuality
	}
	if f.TallyConcurrency != 0 {
		c.TallyConcurrency = f.TallyConcurrency
	}
	if f.PulseDuration != 0 {
		c.PulseDuration = f.PulseDuration
	}
	if f.Headless != nil {
		c.Headless = *f.Headless
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, if specified
//  2. .mediatrack in the current directory
//  3. config.yaml in the XDG config directory
//  4. .mediatrack in the user's home directory
//
// Returns the path if found, or an empty string.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
