// Package scanner finds the media elements on a page that are worth tracking.
package scanner

import (
	"strings"

	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/model"
)

// Size thresholds in CSS pixels.
const (
	// MinImageSize is the exclusive lower bound on both image dimensions.
	MinImageSize = 50

	// MinFrameWidth and MinFrameHeight are the exclusive lower bounds for
	// treating an unrecognised frame as video by size alone.
	MinFrameWidth  = 300
	MinFrameHeight = 200
)

// videoHosts are source substrings that mark a frame as embedded video.
var videoHosts = []string{"youtube", "vimeo", "video"}

// Candidate is an element selected for tracking.
type Candidate struct {
	Element dom.Element
	Kind    model.MediaKind
}

// Scan returns the trackable elements of doc: large images, every video,
// then video-like frames, each group in document order. It must run on
// the goroutine that owns doc.
func Scan(doc dom.Document) []Candidate {
	var out []Candidate

	for _, el := range doc.Elements("img") {
		r := el.BoundingClientRect()
		if r.Width > MinImageSize && r.Height > MinImageSize {
			out = append(out, Candidate{Element: el, Kind: model.MediaKindImage})
		}
	}

	for _, el := range doc.Elements("video") {
		out = append(out, Candidate{Element: el, Kind: model.MediaKindVideo})
	}

	for _, el := range doc.Elements("iframe") {
		if IsVideoFrame(el) {
			out = append(out, Candidate{Element: el, Kind: model.MediaKindVideo})
		}
	}

	return out
}

// IsVideoFrame reports whether a frame embeds video, either by a known
// host in its source or by being large.
func IsVideoFrame(el dom.Element) bool {
	src := strings.ToLower(el.Attr("src"))
	if src == "" {
		src = strings.ToLower(el.Source())
	}
	for _, host := range videoHosts {
		if strings.Contains(src, host) {
			return true
		}
	}
	r := el.BoundingClientRect()
	return r.Width > MinFrameWidth && r.Height > MinFrameHeight
}
