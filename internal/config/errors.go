package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrInvalidVoteStoreURL is returned when the vote store URL is not an absolute http(s) URL.
	ErrInvalidVoteStoreURL = errors.New("invalid vote store URL: must be an absolute http(s) URL")

	// ErrInvalidClassifierURL is returned when the classifier URL is not an absolute http(s) URL.
	ErrInvalidClassifierURL = errors.New("invalid classifier URL: must be an absolute http(s) URL")

	// ErrInvalidTimeout is returned when the request timeout is negative.
	// Zero is valid and means no timeout.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be non-negative")

	// ErrInvalidImageDimension is returned when the payload dimension limit is not positive.
	ErrInvalidImageDimension = errors.New("invalid max image dimension: must be positive")

	// ErrInvalidJPEGQuality is returned when the JPEG quality is outside 1..100.
	ErrInvalidJPEGQuality = errors.New("invalid JPEG quality: must be between 1 and 100")

	// ErrInvalidConcurrency is returned when the tally fetch concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid tally concurrency: must be positive")

	// ErrEmptyControlAddr is returned when no control listener address is configured.
	ErrEmptyControlAddr = errors.New("control address must not be empty")

	// ErrEmptyLocalStoreDir is returned when local votes are enabled without a directory.
	ErrEmptyLocalStoreDir = errors.New("local vote store directory must not be empty when local votes are enabled")
)
