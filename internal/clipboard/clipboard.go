// Package clipboard reads an image from the system clipboard.
//
// A Chain tries its strategies in order and returns the first image
// found, as a data URL. Binary images are re-encoded as JPEG; a data URL
// copied as text is returned unchanged.
package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/imaging"
	"github.com/nao1215/mediatrack/internal/log"
)

// ErrNoImage is returned when no strategy found an image.
var ErrNoImage = errors.New("no image found in clipboard")

// PasteTimeout is how long PasteStrategy waits for a paste.
const PasteTimeout = time.Second

// Strategy is one way of reading a clipboard image.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Read returns the clipboard image as a data URL.
	Read(ctx context.Context) (string, error)
}

// Chain tries strategies in order.
type Chain struct {
	strategies []Strategy
	quality    int
	logger     *slog.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) {
		c.logger = l
	}
}

// NewChain creates a Chain over strategies.
func NewChain(strategies []Strategy, opts ...Option) *Chain {
	c := &Chain{
		strategies: strategies,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Default returns the usual order: the native clipboard tool, the
// clipboard text, then a paste into doc. doc may be nil.
func Default(doc dom.Document, quality int, opts ...Option) *Chain {
	strategies := []Strategy{
		NewCommandStrategy(quality),
		NewTextStrategy(),
	}
	if doc != nil {
		strategies = append(strategies, NewPasteStrategy(doc, quality))
	}
	return NewChain(strategies, opts...)
}

// Read returns the first image any strategy yields. It stops early when
// ctx ends.
func (c *Chain) Read(ctx context.Context) (string, error) {
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		dataURL, err := s.Read(ctx)
		if err == nil && dataURL != "" {
			c.logger.Debug("clipboard image found", "strategy", s.Name())
			return dataURL, nil
		}
		c.logger.Debug("clipboard strategy failed", "strategy", s.Name(), "error", err)
	}
	return "", ErrNoImage
}

// CommandStrategy runs a native clipboard tool that prints image bytes.
type CommandStrategy struct {
	// commands are tried in order; the first one installed is used.
	commands [][]string
	quality  int
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewCommandStrategy uses wl-paste on Wayland and xclip on X11.
func NewCommandStrategy(quality int) *CommandStrategy {
	return &CommandStrategy{
		commands: [][]string{
			{"wl-paste", "--type", "image/png"},
			{"xclip", "-selection", "clipboard", "-t", "image/png", "-o"},
		},
		quality: quality,
		run:     runCommand,
	}
}

// Name returns "command".
func (s *CommandStrategy) Name() string { return "command" }

// Read runs the first available tool.
func (s *CommandStrategy) Read(ctx context.Context) (string, error) {
	for _, argv := range s.commands {
		if _, err := exec.LookPath(argv[0]); err != nil {
			continue
		}
		out, err := s.run(ctx, argv[0], argv[1:]...)
		if err != nil {
			return "", fmt.Errorf("%s: %w", argv[0], err)
		}
		return toDataURL(out, s.quality)
	}
	return "", errors.New("no clipboard tool installed")
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // Fixed tool names
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

// TextStrategy accepts a data:image/ URL copied as text.
type TextStrategy struct {
	read func() (string, error)
}

// NewTextStrategy reads the clipboard text.
func NewTextStrategy() *TextStrategy {
	return &TextStrategy{read: clipboard.ReadAll}
}

// Name returns "text".
func (s *TextStrategy) Name() string { return "text" }

// Read returns the clipboard text when it is an image data URL.
func (s *TextStrategy) Read(_ context.Context) (string, error) {
	if clipboard.Unsupported {
		return "", errors.New("clipboard text is not supported on this system")
	}
	text, err := s.read()
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "data:image/") {
		return "", errors.New("clipboard text is not an image data URL")
	}
	return text, nil
}

// PasteStrategy waits briefly for an image pasted into the page.
type PasteStrategy struct {
	doc     dom.Document
	quality int
	timeout time.Duration
}

// NewPasteStrategy waits up to PasteTimeout for a paste into doc.
func NewPasteStrategy(doc dom.Document, quality int) *PasteStrategy {
	return &PasteStrategy{doc: doc, quality: quality, timeout: PasteTimeout}
}

// Name returns "paste".
func (s *PasteStrategy) Name() string { return "paste" }

// Read captures the next paste.
func (s *PasteStrategy) Read(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.doc.CapturePaste(ctx)
	if err != nil {
		return "", err
	}
	return toDataURL(data, s.quality)
}

// toDataURL re-encodes image bytes as a JPEG data URL.
func toDataURL(data []byte, quality int) (string, error) {
	if len(data) == 0 {
		return "", ErrNoImage
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("clipboard holds %s, not an image", ct)
	}
	return imaging.ToJPEGDataURL(data, quality)
}
