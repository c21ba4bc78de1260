package overlay

import (
	"fmt"

	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/model"
)

// FramePadding is the gap in CSS pixels between an element and its frame.
const FramePadding = 5

// ZIndex keeps frames above page content.
const ZIndex = "10000"

// Control colours. Pressed colours are shown for PulseDuration after a vote.
const (
	FakeColor        = "#34a853"
	FakePressedColor = "#2e8b57"
	RealColor        = "#ea4335"
	RealPressedColor = "#d33b2c"
	AnalyzeColor     = "#4285f4"
)

// Style is the frame's border colour and translucent fill.
type Style struct {
	Border     string
	Background string
}

var (
	// DefaultStyle is used until a tally has loaded, and for non-image media.
	DefaultStyle = Style{Border: "#00ff00", Background: "rgba(0, 255, 0, 0.1)"}

	// LeansFakeStyle marks images with at least as many fake votes as real.
	LeansFakeStyle = Style{Border: FakeColor, Background: "rgba(52, 168, 83, 0.1)"}

	// LeansRealStyle marks images with more real votes than fake.
	LeansRealStyle = Style{Border: RealColor, Background: "rgba(234, 67, 53, 0.1)"}
)

// StyleFor returns the frame style for a loaded tally.
func StyleFor(t model.Tally) Style {
	if t.LeansFake() {
		return LeansFakeStyle
	}
	return LeansRealStyle
}

// FormatTally renders the tally line shown under the controls.
func FormatTally(t model.Tally) string {
	return fmt.Sprintf("%d fake, %d real", t.FakeVotes, t.RealVotes)
}

// FrameFor converts a viewport-relative element box into the frame's
// document-relative box, padded by FramePadding on every side.
func FrameFor(rect dom.Rect, scroll dom.Point) dom.Rect {
	return dom.Rect{
		X:      rect.X + scroll.X - FramePadding,
		Y:      rect.Y + scroll.Y - FramePadding,
		Width:  rect.Width + 2*FramePadding,
		Height: rect.Height + 2*FramePadding,
	}
}
