package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"api_key":             true,
	"apikey":              true,
	"api-key":             true,
	"password":            true,
	"secret":              true,
	"token":               true,
	"access_token":        true,
	"refresh_token":       true,
	"credentials":         true,
}

// sensitiveKeywords are substrings that mark a key as sensitive.
// The bare word "key" is not listed: "image_key" and "keyboard" are not secrets.
var sensitiveKeywords = []string{
	"password", "secret", "token", "credential", "auth",
}

// sensitivePatterns match values that look like credentials regardless of key.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
}

// MaskValue replaces sensitive values.
const MaskValue = "***REDACTED***"

// maxDataURLPrefix is how much of a data: URL header is kept.
const maxDataURLPrefix = 48

// Handler wraps an slog.Handler and rewrites attribute values before
// they are passed on. See the package documentation for the rules.
//
// Design decision: We use a handler wrapper rather than a custom logger
// so every component keeps taking a plain *slog.Logger, and the text and
// JSON outputs share one set of masking rules.
type Handler struct {
	// handler is the underlying slog handler that receives rewritten records.
	handler slog.Handler
}

// NewHandler creates a Handler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewHandler(handler slog.Handler) *Handler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &Handler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle rewrites the record's attributes and passes it on.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	rewritten := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		rewritten.AddAttrs(rewriteAttr(a))
		return true
	})
	return h.handler.Handle(ctx, rewritten)
}

// WithAttrs returns a new handler with the rewritten attributes added.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = rewriteAttr(a)
	}
	return &Handler{handler: h.handler.WithAttrs(out)}
}

// WithGroup returns a new handler with the given group name.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{handler: h.handler.WithGroup(name)}
}

// rewriteAttr rewrites a single attribute, recursing into groups.
func rewriteAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = rewriteAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if isSensitiveKey(strings.ToLower(a.Key)) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}

	s := a.Value.String()
	if isSensitiveValue(s) {
		return slog.String(a.Key, MaskValue)
	}
	if short, ok := ShortenDataURL(s); ok {
		return slog.String(a.Key, short)
	}
	return a
}

// isSensitiveKey reports whether a key names a credential, either exactly
// or through one of the sensitive keywords. Matching is case-insensitive.
func isSensitiveKey(key string) bool {
	if sensitiveKeys[key] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isSensitiveValue reports whether a value looks like a token or key.
func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// ShortenDataURL reduces a data: URL to its header and total length.
// It reports false when value is not a data: URL.
func ShortenDataURL(value string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(value), "data:") {
		return value, false
	}
	header := value
	if i := strings.IndexByte(value, ','); i >= 0 {
		header = value[:i]
	}
	if len(header) > maxDataURLPrefix {
		header = header[:maxDataURLPrefix]
	}
	return fmt.Sprintf("%s,…(%d bytes)", header, len(value)), true
}

// level maps the verbose flag to the minimum record level.
func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLogger creates a text logger writing to w.
// verbose enables debug output; otherwise info and above are logged.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	textHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewHandler(textHandler))
}

// NewJSONLogger creates a JSON logger writing to w.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewHandler(jsonHandler))
}

// Discard returns a logger that drops everything. Useful as a default in tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
