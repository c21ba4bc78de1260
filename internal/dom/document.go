package dom

import "context"

// Point is a 2D offset in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a rectangle in CSS pixels. For Element.BoundingClientRect it is
// relative to the viewport, as in the browser.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is a live reference to a page element.
// The reference does not keep the element in the document.
type Element interface {
	// Tag returns the lower-case tag name.
	Tag() string

	// Attr returns an attribute value, or "" when absent.
	Attr(name string) string

	// Source returns the resolved absolute resource URL (src/currentSrc),
	// or "" when the element has none.
	Source() string

	// BoundingClientRect returns the current viewport-relative box.
	BoundingClientRect() Rect

	// Attached reports whether the element is still part of the document.
	Attached() bool

	// Capture snapshots an image element for reading its pixels later.
	// It fails with ErrDetached, ErrNotRasterizable or ErrNoSource and
	// never waits on the network.
	Capture(ctx context.Context) (Capture, error)

	// Text returns the rendered text content.
	Text() string
}

// EventKind identifies a page event.
type EventKind int

const (
	// EventScroll fires when the page scroll offset changes.
	EventScroll EventKind = iota

	// EventResize fires when the viewport size changes.
	EventResize

	// EventClick fires when a mounted overlay node is clicked.
	EventClick
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventScroll:
		return "scroll"
	case EventResize:
		return "resize"
	case EventClick:
		return "click"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners registered with Document.Listen.
type Event struct {
	Kind EventKind

	// Node is the clicked overlay node for EventClick.
	Node *Node
}

// Document is a live page.
type Document interface {
	// URL returns the page URL used to resolve relative sources.
	URL() string

	// Elements returns the attached elements with the given tag in
	// document order. Overlay nodes are never returned.
	Elements(tag string) []Element

	// Scroll returns the current page scroll offset.
	Scroll() Point

	// Mount appends an overlay tree as a direct child of the body.
	Mount(n *Node) error

	// Unmount removes a mounted overlay tree.
	Unmount(n *Node) error

	// Mounted reports whether an overlay tree is currently mounted.
	Mounted(n *Node) bool

	// Refresh publishes changes made to a mounted overlay tree.
	Refresh(n *Node) error

	// Listen registers fn for scroll, resize and click events.
	// fn may be called from any goroutine.
	Listen(fn func(Event))

	// CapturePaste waits for the next paste into the page and returns
	// the pasted image bytes. It returns ErrNoPaste when ctx ends first.
	CapturePaste(ctx context.Context) ([]byte, error)
}
