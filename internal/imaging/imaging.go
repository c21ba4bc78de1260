// Package imaging converts page images into classifier payloads:
// decoding whatever format the page served, bounding the size, and
// encoding JPEG bytes and data URLs.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // GIF decoder
	"image/jpeg"
	_ "image/png" // PNG decoder
	"net/url"
	"strings"

	_ "golang.org/x/image/bmp" // BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder
)

// MIMEJPEG is the media type of every payload this package produces.
const MIMEJPEG = "image/jpeg"

var (
	// ErrNotDataURL is returned when a string is not a data: URL.
	ErrNotDataURL = errors.New("not a data URL")

	// ErrEmptyImage is returned for zero-sized images.
	ErrEmptyImage = errors.New("image has no pixels")
)

// Decode decodes image bytes in any registered format.
// It returns the image and the format name.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, format, ErrEmptyImage
	}
	return img, format, nil
}

// Fit scales img down so that its longest side is at most maxDim pixels.
// Images already within the bound are returned unchanged.
func Fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = max(1, h*maxDim/w)
	} else {
		nh = maxDim
		nw = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodeJPEG encodes img as JPEG with the given quality (1..100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL builds a base64 data: URL.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// JPEGDataURL encodes img as a JPEG data URL.
func JPEGDataURL(img image.Image, quality int) (string, error) {
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return "", err
	}
	return DataURL(MIMEJPEG, data), nil
}

// ParseDataURL extracts the payload and media type of a data: URL.
// Both base64 and percent-encoded payloads are accepted.
func ParseDataURL(s string) ([]byte, string, error) {
	if !strings.HasPrefix(strings.ToLower(s), "data:") {
		return nil, "", ErrNotDataURL
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing comma", ErrNotDataURL)
	}

	mime := header
	isBase64 := false
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		mime = header[:len(header)-len(";base64")]
		isBase64 = true
	}
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if mime == "" {
		mime = "text/plain"
	}

	if !isBase64 {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("failed to unescape data URL: %w", err)
		}
		return []byte(decoded), mime, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some producers emit URL-safe base64.
		data, err = base64.URLEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode data URL: %w", err)
		}
	}
	return data, mime, nil
}

// ToJPEGDataURL decodes arbitrary image bytes and re-encodes them as a
// JPEG data URL.
func ToJPEGDataURL(data []byte, quality int) (string, error) {
	img, _, err := Decode(data)
	if err != nil {
		return "", err
	}
	return JPEGDataURL(img, quality)
}
