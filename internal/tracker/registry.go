// Package tracker holds the elements tracked during a detection session.
package tracker

import (
	"log/slog"

	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/log"
	"github.com/nao1215/mediatrack/internal/model"
	"github.com/nao1215/mediatrack/internal/overlay"
)

// Entry associates a live element with the overlay drawn over it.
type Entry struct {
	// Element is a non-owning reference; the page may remove it at any time.
	Element dom.Element

	// Kind is the media kind the element was classified as.
	Kind model.MediaKind

	// Overlay is owned by the entry and removed with it.
	Overlay *overlay.Overlay

	// Identity is the vote key derived from the element's source.
	Identity string
}

// Source returns the element's resolved source, or model.NoSource.
func (e *Entry) Source() string {
	if src := e.Element.Source(); src != "" {
		return src
	}
	return model.NoSource
}

// Registry is the ordered set of tracked entries plus the session flag.
// It is not safe for concurrent use; it belongs to the event loop.
type Registry struct {
	entries []*Entry
	active  bool
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty, inactive registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{logger: log.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends an entry. Entries are not deduplicated.
func (r *Registry) Add(e *Entry) {
	r.entries = append(r.entries, e)
}

// Clear removes every overlay that is still mounted, drops all entries and
// marks the session inactive.
func (r *Registry) Clear() {
	for _, e := range r.entries {
		if e.Overlay == nil {
			continue
		}
		if err := e.Overlay.Remove(); err != nil {
			r.logger.Debug("failed to remove overlay", "identity", e.Identity, "error", err)
		}
	}
	r.entries = nil
	r.active = false
}

// Entries returns the entries in discovery order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Active reports whether a session is running.
func (r *Registry) Active() bool {
	return r.active
}

// SetActive sets the session flag.
func (r *Registry) SetActive(active bool) {
	r.active = active
}

// Snapshot returns kind and source for every entry, in order.
func (r *Registry) Snapshot() []model.EntryStatus {
	out := make([]model.EntryStatus, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, model.EntryStatus{Kind: e.Kind, Source: e.Source()})
	}
	return out
}
