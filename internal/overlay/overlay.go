package overlay

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/model"
)

// IDAttr carries the short identity digest on every overlay node.
const IDAttr = "data-mediatrack-id"

// Class names of overlay nodes.
const (
	FrameClass    = "mediatrack-highlight"
	LabelClass    = "mediatrack-tag"
	ControlsClass = "mediatrack-controls"
)

// Overlay is the node tree drawn over one tracked element.
type Overlay struct {
	// Root is the frame node mounted in the page.
	Root *dom.Node

	// Label is the strip above the frame.
	Label *dom.Node

	// Image-only controls; nil for other kinds.
	FakeButton    *dom.Node
	RealButton    *dom.Node
	AnalyzeButton *dom.Node
	Result        *dom.Node
	Tally         *dom.Node

	kind     model.MediaKind
	identity string
	doc      dom.Document
}

// Kind returns the media kind the overlay was built for.
func (o *Overlay) Kind() model.MediaKind {
	return o.kind
}

// Identity returns the vote key of the tracked element.
func (o *Overlay) Identity() string {
	return o.identity
}

// HasControls reports whether the overlay carries vote and analysis controls.
func (o *Overlay) HasControls() bool {
	return o.FakeButton != nil
}

// Frame returns the current document-relative frame box.
func (o *Overlay) Frame() dom.Rect {
	var r dom.Rect
	r.X, _ = dom.ParsePixels(o.Root.StyleValue("left"))
	r.Y, _ = dom.ParsePixels(o.Root.StyleValue("top"))
	r.Width, _ = dom.ParsePixels(o.Root.StyleValue("width"))
	r.Height, _ = dom.ParsePixels(o.Root.StyleValue("height"))
	return r
}

// Style returns the current frame style.
func (o *Overlay) Style() Style {
	return Style{
		Border:     o.Root.StyleValue("border-color"),
		Background: o.Root.StyleValue("background"),
	}
}

// SetFrame moves the frame and publishes the change.
func (o *Overlay) SetFrame(r dom.Rect) error {
	setFrame(o.Root, r)
	return o.publish()
}

// ApplyTally shows t and restyles the frame. It is a no-op for overlays
// without controls.
func (o *Overlay) ApplyTally(t model.Tally) error {
	if !o.HasControls() {
		return nil
	}
	o.Tally.Text = FormatTally(t)
	setStyle(o.Root, StyleFor(t))
	return o.publish()
}

// TallyText returns the tally line, or "" before the first load.
func (o *Overlay) TallyText() string {
	if o.Tally == nil {
		return ""
	}
	return o.Tally.Text
}

// SetResult replaces the analysis result text.
func (o *Overlay) SetResult(text string) error {
	if !o.HasControls() {
		return nil
	}
	o.Result.Text = text
	return o.publish()
}

// ResultText returns the analysis result text.
func (o *Overlay) ResultText() string {
	if o.Result == nil {
		return ""
	}
	return o.Result.Text
}

// SetPressed switches a vote button between its normal and pressed colour.
func (o *Overlay) SetPressed(isFake, pressed bool) error {
	if !o.HasControls() {
		return nil
	}
	btn, color := o.RealButton, RealColor
	if isFake {
		btn, color = o.FakeButton, FakeColor
	}
	if pressed {
		color = PressedColor(isFake)
	}
	btn.SetStyle("background", color)
	return o.publish()
}

// PressedColor returns the pulse colour of a vote button.
func PressedColor(isFake bool) string {
	if isFake {
		return FakePressedColor
	}
	return RealPressedColor
}

// Mounted reports whether the frame is in the page.
func (o *Overlay) Mounted() bool {
	return o.doc != nil && o.doc.Mounted(o.Root)
}

// Remove unmounts the frame if it is still mounted.
func (o *Overlay) Remove() error {
	if !o.Mounted() {
		return nil
	}
	return o.doc.Unmount(o.Root)
}

func (o *Overlay) publish() error {
	if !o.Mounted() {
		return nil
	}
	return o.doc.Refresh(o.Root)
}

// Renderer creates and mounts overlays in one document.
type Renderer struct {
	doc   dom.Document
	upper cases.Caser
	seq   atomic.Uint64
}

// NewRenderer creates a Renderer for doc.
func NewRenderer(doc dom.Document) *Renderer {
	return &Renderer{
		doc:   doc,
		upper: cases.Upper(language.Und),
	}
}

// Create builds the overlay for el and mounts it in the body.
// The frame is placed from the element's current box and the page scroll.
func (r *Renderer) Create(el dom.Element, kind model.MediaKind, identity string) (*Overlay, error) {
	if !el.Attached() {
		return nil, dom.ErrDetached
	}
	o := r.Build(FrameFor(el.BoundingClientRect(), r.doc.Scroll()), kind, identity)
	if err := r.doc.Mount(o.Root); err != nil {
		return nil, fmt.Errorf("failed to mount overlay: %w", err)
	}
	o.doc = r.doc
	return o, nil
}

// Build creates an unmounted overlay with the given frame.
func (r *Renderer) Build(frame dom.Rect, kind model.MediaKind, identity string) *Overlay {
	prefix := fmt.Sprintf("mediatrack-%d", r.seq.Add(1))
	short := model.ShortID(identity)
	node := func(tag, role string) *dom.Node {
		return dom.NewNode(tag, prefix+"-"+role).SetAttr(IDAttr, short)
	}

	o := &Overlay{kind: kind, identity: identity}

	o.Root = node("div", "frame")
	o.Root.Class = FrameClass
	o.Root.
		SetStyle("position", "absolute").
		SetStyle("border-width", "3px").
		SetStyle("border-style", "solid").
		SetStyle("pointer-events", "none").
		SetStyle("z-index", ZIndex).
		SetStyle("box-sizing", "border-box")
	setFrame(o.Root, frame)
	setStyle(o.Root, DefaultStyle)

	o.Label = node("div", "label")
	o.Label.Class = LabelClass
	o.Label.Text = r.upper.String(kind.String())
	o.Label.
		SetStyle("position", "absolute").
		SetStyle("top", "-25px").
		SetStyle("left", "0").
		SetStyle("background", DefaultStyle.Border).
		SetStyle("color", "#000").
		SetStyle("padding", "2px 8px").
		SetStyle("font-size", "12px").
		SetStyle("font-weight", "bold").
		SetStyle("font-family", "Arial, sans-serif").
		SetStyle("border-radius", "3px").
		SetStyle("white-space", "nowrap").
		SetStyle("display", "flex").
		SetStyle("align-items", "center").
		SetStyle("gap", "8px")
	// The frame lets clicks through to the media; the strip takes them.
	o.Label.SetStyle("pointer-events", "auto")
	o.Root.Append(o.Label)

	if kind != model.MediaKindImage {
		return o
	}

	controls := node("div", "controls")
	controls.Class = ControlsClass
	controls.SetStyle("display", "flex").SetStyle("gap", "8px").SetStyle("margin-top", "8px")

	o.FakeButton = voteButton(node("button", "fake"), "\U0001F44E", "Vote as Fake", FakeColor)
	o.RealButton = voteButton(node("button", "real"), "\U0001F44D", "Vote as Real", RealColor)

	o.AnalyzeButton = node("button", "analyze")
	o.AnalyzeButton.Text = "AI Analysis"
	o.AnalyzeButton.
		SetStyle("padding", "2px 8px").
		SetStyle("font-size", "12px").
		SetStyle("background", AnalyzeColor).
		SetStyle("color", "#fff").
		SetStyle("border", "none").
		SetStyle("border-radius", "3px").
		SetStyle("cursor", "pointer").
		SetStyle("pointer-events", "auto")

	o.Result = node("span", "result")
	o.Result.SetStyle("margin-left", "6px").SetStyle("font-size", "12px").SetStyle("font-weight", "bold")

	o.Tally = node("div", "tally")
	o.Tally.SetStyle("font-size", "11px").SetStyle("color", "#666").SetStyle("margin-top", "4px")

	controls.Append(o.FakeButton, o.RealButton, o.AnalyzeButton, o.Result)
	o.Label.Append(controls, o.Tally)
	return o
}

func voteButton(n *dom.Node, text, title, color string) *dom.Node {
	n.Text = text
	n.Title = title
	n.
		SetStyle("padding", "4px 8px").
		SetStyle("font-size", "14px").
		SetStyle("background", color).
		SetStyle("color", "white").
		SetStyle("border", "none").
		SetStyle("border-radius", "3px").
		SetStyle("cursor", "pointer").
		SetStyle("pointer-events", "auto").
		SetStyle("display", "flex").
		SetStyle("align-items", "center").
		SetStyle("gap", "4px")
	return n
}

func setFrame(n *dom.Node, r dom.Rect) {
	n.
		SetStyle("left", dom.FormatPixels(r.X)).
		SetStyle("top", dom.FormatPixels(r.Y)).
		SetStyle("width", dom.FormatPixels(r.Width)).
		SetStyle("height", dom.FormatPixels(r.Height))
}

func setStyle(n *dom.Node, s Style) {
	n.SetStyle("border-color", s.Border).SetStyle("background", s.Background)
}
