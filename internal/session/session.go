// Package session controls a detection session on one page.
//
// The Controller owns the registry and drives the event loop: every
// operation hops onto the loop, so requests arriving from any goroutine
// are applied one at a time in arrival order.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/nao1215/mediatrack/internal/dispatch"
	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/imaging"
	"github.com/nao1215/mediatrack/internal/log"
	"github.com/nao1215/mediatrack/internal/loop"
	"github.com/nao1215/mediatrack/internal/model"
	"github.com/nao1215/mediatrack/internal/overlay"
	"github.com/nao1215/mediatrack/internal/scanner"
	"github.com/nao1215/mediatrack/internal/tracker"
)

var (
	// ErrImageNotFound is returned by ImageData when no image has the source.
	ErrImageNotFound = errors.New("Image not found") //nolint:staticcheck // Shown to users verbatim

	// ErrImageData is returned by ImageData when the pixels cannot be read.
	ErrImageData = errors.New("Failed to get image data") //nolint:staticcheck // Shown to users verbatim
)

// ClipboardReader reads a clipboard image as a data URL.
type ClipboardReader interface {
	Read(ctx context.Context) (string, error)
}

// Status describes the current session.
type Status struct {
	Active  bool                `json:"active"`
	Count   int                 `json:"count"`
	Entries []model.EntryStatus `json:"entries"`
}

// Controller runs detection sessions on one document.
type Controller struct {
	doc        dom.Document
	loop       *loop.Loop
	registry   *tracker.Registry
	renderer   *overlay.Renderer
	dispatcher *dispatch.Dispatcher
	clipboard  ClipboardReader
	reposition *loop.Coalescer
	logger     *slog.Logger
	quality    int

	// runCtx bounds background requests. Set by Run before the loop starts.
	runCtx context.Context
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithClipboard sets the clipboard reader.
func WithClipboard(r ClipboardReader) Option {
	return func(c *Controller) {
		c.clipboard = r
	}
}

// WithJPEGQuality sets the quality of images returned by ImageData.
func WithJPEGQuality(q int) Option {
	return func(c *Controller) {
		if q > 0 && q <= 100 {
			c.quality = q
		}
	}
}

// New creates a stopped Controller for doc.
func New(doc dom.Document, l *loop.Loop, d *dispatch.Dispatcher, opts ...Option) *Controller {
	c := &Controller{
		doc:        doc,
		loop:       l,
		renderer:   overlay.NewRenderer(doc),
		dispatcher: d,
		logger:     log.Discard(),
		quality:    92,
		runCtx:     context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registry = tracker.NewRegistry(tracker.WithLogger(c.logger))
	c.reposition = loop.NewCoalescer(l, c.repositionAll)
	return c
}

// Run subscribes to document events and runs the event loop until ctx
// is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	c.doc.Listen(c.handleEvent)
	return c.loop.Run(ctx)
}

func (c *Controller) handleEvent(ev dom.Event) {
	switch ev.Kind {
	case dom.EventScroll, dom.EventResize:
		c.reposition.Signal()
	case dom.EventClick:
		if ev.Node == nil || !ev.Node.Clickable() {
			return
		}
		c.loop.Post(ev.Node.OnClick)
	}
}

// Start begins a session: one scan, one overlay per found element, then
// the initial tally load. It returns the number of tracked elements.
// Starting an active session changes nothing and returns the current count.
func (c *Controller) Start(ctx context.Context) (int, error) {
	var count int
	err := c.loop.Call(ctx, func() {
		count = c.start()
	})
	return count, err
}

func (c *Controller) start() int {
	if c.registry.Active() {
		return c.registry.Len()
	}
	c.registry.SetActive(true)

	for _, cand := range scanner.Scan(c.doc) {
		identity := model.Identity(cand.Element.Source())
		o, err := c.renderer.Create(cand.Element, cand.Kind, identity)
		if err != nil {
			c.logger.Warn("failed to create overlay", "kind", cand.Kind.String(), "error", err)
			continue
		}
		e := &tracker.Entry{
			Element:  cand.Element,
			Kind:     cand.Kind,
			Overlay:  o,
			Identity: identity,
		}
		c.registry.Add(e)
		c.dispatcher.Attach(c.runCtx, e)
	}

	c.dispatcher.LoadTallies(c.runCtx, c.registry.Entries())
	c.logger.Info("detection started", "count", c.registry.Len())
	return c.registry.Len()
}

// Stop removes every overlay and ends the session. Stopping a stopped
// session is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	return c.loop.Call(ctx, func() {
		if !c.registry.Active() {
			return
		}
		c.registry.Clear()
		c.logger.Info("detection stopped")
	})
}

// Status reports whether a session is active and what it tracks.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.loop.Call(ctx, func() {
		st = Status{
			Active:  c.registry.Active(),
			Count:   c.registry.Len(),
			Entries: c.registry.Snapshot(),
		}
	})
	return st, err
}

// Entries returns the tracked entries. The entries belong to the loop;
// callers must only inspect them from loop tasks.
func (c *Controller) Entries(ctx context.Context) ([]*tracker.Entry, error) {
	var entries []*tracker.Entry
	err := c.loop.Call(ctx, func() {
		entries = c.registry.Entries()
	})
	return entries, err
}

// ImageData returns the current pixels of the first image whose resolved
// source equals src, as a JPEG data URL. The image is found and captured
// on the loop; loading and encoding happen on the caller's goroutine.
func (c *Controller) ImageData(ctx context.Context, src string) (string, error) {
	var (
		capture dom.Capture
		result  error
	)
	err := c.loop.Call(ctx, func() {
		var target dom.Element
		for _, el := range c.doc.Elements("img") {
			if el.Source() == src {
				target = el
				break
			}
		}
		if target == nil {
			result = ErrImageNotFound
			return
		}

		var err error
		if capture, err = target.Capture(ctx); err != nil {
			c.logger.Debug("failed to capture image", "src", src, "error", err)
			result = ErrImageData
		}
	})
	if err != nil {
		return "", err
	}
	if result != nil {
		return "", result
	}

	img, err := capture.Image(ctx)
	if err != nil {
		c.logger.Debug("failed to read image", "src", src, "error", err)
		return "", ErrImageData
	}
	dataURL, err := imaging.JPEGDataURL(img, c.quality)
	if err != nil {
		c.logger.Debug("failed to encode image", "src", src, "error", err)
		return "", ErrImageData
	}
	return dataURL, nil
}

// ClipboardImage returns the clipboard image as a data URL. It runs off
// the loop because strategies may block waiting for the user.
func (c *Controller) ClipboardImage(ctx context.Context) (string, error) {
	if c.clipboard == nil {
		return "", errors.New("clipboard access is not configured")
	}
	return c.clipboard.Read(ctx)
}

// ArticleText returns the text of the first article element, or the
// text of every paragraph joined by newlines when there is none.
func (c *Controller) ArticleText(ctx context.Context) (string, error) {
	var text string
	err := c.loop.Call(ctx, func() {
		if articles := c.doc.Elements("article"); len(articles) > 0 {
			text = articles[0].Text()
			return
		}
		paragraphs := c.doc.Elements("p")
		parts := make([]string, 0, len(paragraphs))
		for _, p := range paragraphs {
			parts = append(parts, p.Text())
		}
		text = strings.Join(parts, "\n")
	})
	return text, err
}

func (c *Controller) repositionAll() {
	if c.registry.Len() == 0 {
		return
	}
	moved := c.registry.Reposition(c.doc)
	c.logger.Debug("overlays repositioned", "moved", moved)
}
