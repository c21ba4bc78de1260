package dom

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/nao1215/mediatrack/internal/imaging"
)

// Capture is an image element as seen at one moment: its source and,
// when the page could draw it, the encoded pixels. Taking a Capture never
// touches the network. Reading one through Encoded, Image or Resource may
// load the resource, so those belong off the event loop.
type Capture struct {
	// Source is the resolved resource URL.
	Source string

	// Pixels holds encoded image bytes read inside the page, or nil when
	// the pixels have to come from the resource.
	Pixels []byte

	loader Loader
}

// NewCapture builds a Capture. loader may be nil when src needs none.
func NewCapture(src string, pixels []byte, loader Loader) Capture {
	return Capture{Source: src, Pixels: pixels, loader: loader}
}

// Resource returns the raw bytes behind Source. data: URLs are decoded
// in place; anything else goes through the loader.
func (c Capture) Resource(ctx context.Context) ([]byte, error) {
	if c.Source == "" {
		return nil, ErrNoSource
	}
	if strings.HasPrefix(strings.ToLower(c.Source), "data:") {
		data, _, err := imaging.ParseDataURL(c.Source)
		return data, err
	}
	if c.loader == nil {
		return nil, ErrNoLoader
	}
	return c.loader.Load(ctx, c.Source)
}

// Encoded returns Pixels when present, otherwise the resource bytes.
func (c Capture) Encoded(ctx context.Context) ([]byte, error) {
	if c.Pixels != nil {
		return c.Pixels, nil
	}
	return c.Resource(ctx)
}

// Image decodes the captured pixels.
func (c Capture) Image(ctx context.Context) (image.Image, error) {
	data, err := c.Encoded(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotRasterizable, err)
	}
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotRasterizable, err)
	}
	return img, nil
}
