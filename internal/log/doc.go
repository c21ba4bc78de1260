// Package log provides the structured logger used by every mediatrack
// component, built on top of the standard slog package.
//
// The Handler wrapper rewrites attribute values before they reach the
// underlying text or JSON handler:
//   - credentials (Authorization headers, API keys, tokens) are masked
//   - inline data: URLs are shortened to their media type and size, since
//     rasterized page images would otherwise flood the log
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Info("analysis requested", "source", src)
//	slog.SetDefault(logger)
package log
