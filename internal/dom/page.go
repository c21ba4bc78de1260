package dom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/nao1215/mediatrack/internal/imaging"
)

// geometryKeys is the order in which SetGeometry writes style properties.
var geometryKeys = []string{"position", "left", "top", "width", "height", "display"}

// Page is an in-memory Document built from parsed HTML.
//
// Element geometry comes from inline styles (left, top, width, height in
// px) with width/height attributes as a fallback, in document coordinates,
// or viewport coordinates for position: fixed.
// A display:none element has zero size. Page also exposes driver methods
// (ScrollTo, Resize, Click, Paste, Remove, SetGeometry) that simulate user
// activity and page mutation.
type Page struct {
	mu sync.Mutex

	// base resolves relative sources.
	base *url.URL

	// root is the parsed document.
	root *html.Node

	// body is where new content is inserted.
	body *html.Node

	scroll   Point
	viewport Point

	// overlays holds mounted overlay trees in mount order.
	overlays []*Node

	listeners []func(Event)

	// loader fetches remote resources; nil disables remote loads.
	loader Loader

	// resources caches loaded bytes by URL.
	resources map[string][]byte

	pastes chan []byte
}

// Option configures a Page.
type Option func(*Page)

// WithLoader sets the resource loader.
func WithLoader(l Loader) Option {
	return func(p *Page) {
		p.loader = l
	}
}

// WithViewport sets the initial viewport size.
func WithViewport(width, height float64) Option {
	return func(p *Page) {
		p.viewport = Point{X: width, Y: height}
	}
}

// Parse builds a Page from HTML content. pageURL resolves relative sources.
func Parse(r io.Reader, pageURL string, opts ...Option) (*Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	p := &Page{
		base:      base,
		root:      root,
		viewport:  Point{X: 1280, Y: 800},
		resources: make(map[string][]byte),
		pastes:    make(chan []byte, 1),
	}
	p.body = findFirst(root, "body")
	if p.body == nil {
		// html.Parse always synthesizes a body; this covers hand-built trees.
		p.body = root
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ParseString is Parse for an in-memory string.
func ParseString(content, pageURL string, opts ...Option) (*Page, error) {
	return Parse(strings.NewReader(content), pageURL, opts...)
}

// URL returns the page URL.
func (p *Page) URL() string {
	return p.base.String()
}

// Elements returns attached elements with the given tag in document order.
func (p *Page) Elements(tag string) []Element {
	p.mu.Lock()
	defer p.mu.Unlock()

	tag = strings.ToLower(tag)
	var out []Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, &element{page: p, node: n})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.root)
	return out
}

// Scroll returns the scroll offset.
func (p *Page) Scroll() Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scroll
}

// Viewport returns the viewport size.
func (p *Page) Viewport() Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport
}

// Mount appends n as an overlay. Mounting twice is a no-op.
func (p *Page) Mount(n *Node) error {
	if n == nil {
		return errors.New("cannot mount nil node")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if slices.Contains(p.overlays, n) {
		return nil
	}
	p.overlays = append(p.overlays, n)
	return nil
}

// Unmount removes n.
func (p *Page) Unmount(n *Node) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.Index(p.overlays, n)
	if i < 0 {
		return ErrNotMounted
	}
	p.overlays = slices.Delete(p.overlays, i, i+1)
	return nil
}

// Mounted reports whether n is mounted.
func (p *Page) Mounted(n *Node) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.overlays, n)
}

// Refresh is a no-op for mounted nodes since the page renders Nodes directly.
func (p *Page) Refresh(n *Node) error {
	if !p.Mounted(n) {
		return ErrNotMounted
	}
	return nil
}

// Overlays returns the mounted overlay trees in mount order.
func (p *Page) Overlays() []*Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.overlays)
}

// Listen registers fn for page events.
func (p *Page) Listen(fn func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// CapturePaste waits for the next Paste.
func (p *Page) CapturePaste(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.pastes:
		return data, nil
	case <-ctx.Done():
		return nil, ErrNoPaste
	}
}

// ScrollTo sets the scroll offset and fires a scroll event.
func (p *Page) ScrollTo(x, y float64) {
	p.mu.Lock()
	p.scroll = Point{X: x, Y: y}
	p.mu.Unlock()
	p.emit(Event{Kind: EventScroll})
}

// ScrollBy moves the scroll offset and fires a scroll event.
func (p *Page) ScrollBy(dx, dy float64) {
	p.mu.Lock()
	p.scroll = Point{X: p.scroll.X + dx, Y: p.scroll.Y + dy}
	p.mu.Unlock()
	p.emit(Event{Kind: EventScroll})
}

// Resize sets the viewport size and fires a resize event.
func (p *Page) Resize(width, height float64) {
	p.mu.Lock()
	p.viewport = Point{X: width, Y: height}
	p.mu.Unlock()
	p.emit(Event{Kind: EventResize})
}

// Click fires a click event on the mounted overlay node with the given id.
func (p *Page) Click(id string) error {
	p.mu.Lock()
	var target *Node
	for _, o := range p.overlays {
		if target = o.Find(id); target != nil {
			break
		}
	}
	p.mu.Unlock()

	if target == nil {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	p.emit(Event{Kind: EventClick, Node: target})
	return nil
}

// Paste delivers image bytes to a pending or future CapturePaste.
// A paste arriving while an earlier one is unread is dropped.
func (p *Page) Paste(data []byte) {
	select {
	case p.pastes <- data:
	default:
	}
}

// Remove detaches el from the document.
func (p *Page) Remove(el Element) error {
	e, err := p.own(el)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.node.Parent == nil {
		return ErrDetached
	}
	e.node.Parent.RemoveChild(e.node)
	return nil
}

// SetGeometry moves and resizes el, in document coordinates.
func (p *Page) SetGeometry(el Element, r Rect) error {
	e, err := p.own(el)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	decls := parseStyle(getAttr(e.node, "style"))
	decls["position"] = "absolute"
	decls["left"] = formatPixels(r.X)
	decls["top"] = formatPixels(r.Y)
	decls["width"] = formatPixels(r.Width)
	decls["height"] = formatPixels(r.Height)
	setAttr(e.node, "style", formatStyle(decls, geometryKeys))
	return nil
}

// SetAttr changes an attribute of el.
func (p *Page) SetAttr(el Element, name, value string) error {
	e, err := p.own(el)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	setAttr(e.node, name, value)
	return nil
}

// AppendHTML parses fragment and appends it to the body.
func (p *Page) AppendHTML(fragment string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	nodes, err := html.ParseFragment(strings.NewReader(fragment), p.body)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}
	for _, n := range nodes {
		p.body.AppendChild(n)
	}
	return nil
}

func (p *Page) own(el Element) (*element, error) {
	e, ok := el.(*element)
	if !ok || e.page != p {
		return nil, errors.New("element does not belong to this page")
	}
	return e, nil
}

func (p *Page) emit(ev Event) {
	p.mu.Lock()
	listeners := slices.Clone(p.listeners)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// resolve turns a raw attribute value into an absolute URL.
// data: URLs are kept verbatim.
func (p *Page) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "data:") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return p.base.ResolveReference(u).String()
}

// load returns the bytes behind a resolved source.
func (p *Page) load(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(strings.ToLower(src), "data:") {
		data, _, err := imaging.ParseDataURL(src)
		return data, err
	}

	p.mu.Lock()
	cached, ok := p.resources[src]
	loader := p.loader
	p.mu.Unlock()
	if ok {
		return cached, nil
	}
	if loader == nil {
		return nil, ErrNoLoader
	}

	data, err := loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.resources[src] = data
	p.mu.Unlock()
	return data, nil
}

// element is a Page element.
type element struct {
	page *Page
	node *html.Node
}

func (e *element) Tag() string {
	return e.node.Data
}

func (e *element) Attr(name string) string {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return getAttr(e.node, name)
}

func (e *element) Source() string {
	e.page.mu.Lock()
	src := getAttr(e.node, "src")
	if src == "" && e.node.Data == "video" {
		for c := e.node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "source" {
				if src = getAttr(c, "src"); src != "" {
					break
				}
			}
		}
	}
	e.page.mu.Unlock()
	return e.page.resolve(src)
}

func (e *element) BoundingClientRect() Rect {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	box := boxOf(e.node)
	if isFixed(e.node) {
		return box
	}
	box.X -= e.page.scroll.X
	box.Y -= e.page.scroll.Y
	return box
}

func (e *element) Attached() bool {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	for n := e.node; n != nil; n = n.Parent {
		if n == e.page.root {
			return true
		}
	}
	return false
}

// Capture resolves the source now and leaves loading to the Capture,
// through the page's resource cache.
func (e *element) Capture(_ context.Context) (Capture, error) {
	if !e.Attached() {
		return Capture{}, ErrDetached
	}
	if e.node.Data != "img" {
		return Capture{}, ErrNotRasterizable
	}
	src := e.Source()
	if src == "" {
		return Capture{}, ErrNoSource
	}
	return NewCapture(src, nil, LoaderFunc(e.page.load)), nil
}

func (e *element) Text() string {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return extractText(e.node)
}

// boxOf computes the document-coordinate box of n.
func boxOf(n *html.Node) Rect {
	decls := parseStyle(getAttr(n, "style"))
	var r Rect
	r.X, _ = parsePixels(decls["left"])
	r.Y, _ = parsePixels(decls["top"])

	if strings.EqualFold(strings.TrimSpace(decls["display"]), "none") {
		return r
	}

	var ok bool
	if r.Width, ok = parsePixels(decls["width"]); !ok {
		r.Width, _ = parsePixels(getAttr(n, "width"))
	}
	if r.Height, ok = parsePixels(decls["height"]); !ok {
		r.Height, _ = parsePixels(getAttr(n, "height"))
	}
	return r
}

// isFixed reports whether n is positioned relative to the viewport.
func isFixed(n *html.Node) bool {
	decls := parseStyle(getAttr(n, "style"))
	return strings.EqualFold(strings.TrimSpace(decls["position"]), "fixed")
}

// extractText returns the whitespace-collapsed text under n, skipping
// script and style content.
func extractText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			parts = append(parts, strings.Fields(n.Data)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, value string) {
	for i, attr := range n.Attr {
		if attr.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}
