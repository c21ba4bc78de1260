// Package browser drives a live Chromium tab as a dom.Document.
//
// A small script injected into every document reports scroll, resize,
// paste and overlay clicks through a runtime binding, and gives Go a
// handle on page elements through a data-mt-ref attribute.
package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/imaging"
	"github.com/nao1215/mediatrack/internal/log"
)

//go:embed bridge.js
var bridgeScript string

// bindingName is the function the injected script calls to reach Go.
const bindingName = "mediatrackEvent"

// Page is a Chromium tab implementing dom.Document.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	url    string

	headless  bool
	userAgent string
	loader    dom.Loader
	logger    *slog.Logger

	mu        sync.Mutex
	mounted   map[string]*dom.Node
	listeners []func(dom.Event)
	pastes    chan []byte
}

var _ dom.Document = (*Page)(nil)

// Option configures a Page.
type Option func(*Page)

// WithHeadless controls whether Chromium runs without a window.
func WithHeadless(headless bool) Option {
	return func(p *Page) {
		p.headless = headless
	}
}

// WithUserAgent sets the browser User-Agent.
func WithUserAgent(ua string) Option {
	return func(p *Page) {
		p.userAgent = ua
	}
}

// WithLoader sets the loader used when pixels cannot be read in the page.
func WithLoader(l dom.Loader) Option {
	return func(p *Page) {
		p.loader = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Page) {
		p.logger = l
	}
}

// Launch starts Chromium, opens pageURL and installs the bridge script.
// Close releases the browser.
func Launch(ctx context.Context, pageURL string, opts ...Option) (*Page, error) {
	p := &Page{
		url:      pageURL,
		headless: true,
		logger:   log.Discard(),
		mounted:  make(map[string]*dom.Node),
		pastes:   make(chan []byte, 1),
	}
	for _, opt := range opts {
		opt(p)
	}

	allocOpts := slices.Clone(chromedp.DefaultExecAllocatorOptions[:])
	if p.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(p.userAgent))
	}
	if !p.headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	p.ctx = tabCtx
	p.cancel = func() {
		tabCancel()
		allocCancel()
	}

	chromedp.ListenTarget(tabCtx, p.onTargetEvent)

	var ok bool
	err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := runtime.AddBinding(bindingName).Do(ctx); err != nil {
				return fmt.Errorf("failed to add binding: %w", err)
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(bridgeScript).Do(ctx); err != nil {
				return fmt.Errorf("failed to install bridge: %w", err)
			}
			return nil
		}),
		chromedp.Navigate(pageURL),
		chromedp.Evaluate(bridgeScript+";true", &ok),
	)
	if err != nil {
		p.cancel()
		return nil, fmt.Errorf("failed to open %s: %w", pageURL, err)
	}

	p.logger.Info("browser page opened", slog.String("url", pageURL), slog.Bool("headless", p.headless))
	return p, nil
}

// Close shuts the tab and the browser down.
func (p *Page) Close() error {
	p.cancel()
	return nil
}

// URL returns the current document location.
func (p *Page) URL() string {
	var href string
	if err := p.eval("location.href", &href); err != nil || href == "" {
		return p.url
	}
	return href
}

// Elements returns the page elements with the given tag in document order.
func (p *Page) Elements(tag string) []dom.Element {
	var refs []string
	if err := p.eval(call("elements", strings.ToLower(tag)), &refs); err != nil {
		p.logger.Warn("failed to list elements", slog.String("tag", tag), slog.String("error", err.Error()))
		return nil
	}
	out := make([]dom.Element, 0, len(refs))
	for _, ref := range refs {
		out = append(out, &element{page: p, ref: ref, tag: strings.ToLower(tag)})
	}
	return out
}

// Scroll returns the window scroll offset.
func (p *Page) Scroll() dom.Point {
	var pt dom.Point
	if err := p.eval("window.__mediatrack.scroll()", &pt); err != nil {
		p.logger.Debug("failed to read scroll offset", slog.String("error", err.Error()))
	}
	return pt
}

// Mount renders n as a direct child of the body.
func (p *Page) Mount(n *dom.Node) error {
	if err := p.render(n); err != nil {
		return err
	}
	p.mu.Lock()
	p.mounted[n.ID] = n
	p.mu.Unlock()
	return nil
}

// Unmount removes a mounted overlay tree.
func (p *Page) Unmount(n *dom.Node) error {
	p.mu.Lock()
	_, ok := p.mounted[n.ID]
	delete(p.mounted, n.ID)
	p.mu.Unlock()
	if !ok {
		return dom.ErrNotMounted
	}

	var done bool
	return p.eval("(window.__mediatrack.unmount("+jsString(n.ID)+"),true)", &done)
}

// Mounted reports whether n is mounted.
func (p *Page) Mounted(n *dom.Node) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.mounted[n.ID]
	return ok
}

// Refresh re-renders a mounted overlay tree.
func (p *Page) Refresh(n *dom.Node) error {
	if !p.Mounted(n) {
		return dom.ErrNotMounted
	}
	return p.render(n)
}

// Listen registers fn for page events.
func (p *Page) Listen(fn func(dom.Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// CapturePaste waits for the next image pasted into the page.
func (p *Page) CapturePaste(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.pastes:
		return data, nil
	case <-ctx.Done():
		return nil, dom.ErrNoPaste
	}
}

func (p *Page) render(n *dom.Node) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode overlay: %w", err)
	}
	var done bool
	if err := p.eval("(window.__mediatrack.mount("+string(data)+"),true)", &done); err != nil {
		return fmt.Errorf("failed to render overlay %s: %w", n.ID, err)
	}
	return nil
}

func (p *Page) eval(expr string, res any) error {
	return chromedp.Run(p.ctx, chromedp.Evaluate(expr, res))
}

// bindingMessage is what the bridge script sends through the binding.
type bindingMessage struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
	Data string `json:"data,omitempty"`
}

// onTargetEvent runs on the chromedp event goroutine and must not call
// back into the browser.
func (p *Page) onTargetEvent(ev any) {
	called, ok := ev.(*runtime.EventBindingCalled)
	if !ok || called.Name != bindingName {
		return
	}

	var msg bindingMessage
	if err := json.Unmarshal([]byte(called.Payload), &msg); err != nil {
		p.logger.Debug("malformed binding payload", slog.String("error", err.Error()))
		return
	}
	p.handleMessage(msg)
}

func (p *Page) handleMessage(msg bindingMessage) {
	switch msg.Kind {
	case "scroll":
		p.emit(dom.Event{Kind: dom.EventScroll})
	case "resize":
		p.emit(dom.Event{Kind: dom.EventResize})
	case "click":
		if node := p.findNode(msg.ID); node != nil {
			p.emit(dom.Event{Kind: dom.EventClick, Node: node})
		}
	case "paste":
		data, _, err := imaging.ParseDataURL(msg.Data)
		if err != nil {
			p.logger.Debug("ignoring paste", slog.String("error", err.Error()))
			return
		}
		select {
		case p.pastes <- data:
		default:
		}
	}
}

func (p *Page) findNode(id string) *dom.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, root := range p.mounted {
		if n := root.Find(id); n != nil {
			return n
		}
	}
	return nil
}

func (p *Page) emit(ev dom.Event) {
	p.mu.Lock()
	listeners := slices.Clone(p.listeners)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// elementInfo is a snapshot of one element read from the page.
type elementInfo struct {
	Attached bool              `json:"attached"`
	Tag      string            `json:"tag"`
	Src      string            `json:"src"`
	Attrs    map[string]string `json:"attrs"`
	Rect     dom.Rect          `json:"rect"`
}

type element struct {
	page *Page
	ref  string
	tag  string
}

func (e *element) info() elementInfo {
	var info elementInfo
	if err := e.page.eval(call("info", e.ref), &info); err != nil {
		e.page.logger.Debug("failed to read element", slog.String("ref", e.ref), slog.String("error", err.Error()))
	}
	return info
}

func (e *element) Tag() string {
	return e.tag
}

func (e *element) Attr(name string) string {
	return e.info().Attrs[name]
}

func (e *element) Source() string {
	return e.info().Src
}

func (e *element) BoundingClientRect() dom.Rect {
	return e.info().Rect
}

func (e *element) Attached() bool {
	return e.info().Attached
}

// Capture draws the element onto a canvas in the page. Cross-origin
// images taint the canvas; their Capture carries no pixels and reading it
// loads the resource instead.
func (e *element) Capture(_ context.Context) (dom.Capture, error) {
	var res struct {
		Data  string `json:"data"`
		Error string `json:"error"`
	}
	if err := e.page.eval(call("rasterize", e.ref), &res); err != nil {
		return dom.Capture{}, fmt.Errorf("%w: %v", dom.ErrNotRasterizable, err)
	}
	if res.Error == "detached" {
		return dom.Capture{}, dom.ErrDetached
	}

	src := e.Source()
	pixels, _, err := imaging.ParseDataURL(res.Data)
	if res.Error != "" || err != nil {
		e.page.logger.Debug("canvas read failed, resource will be loaded", slog.String("ref", e.ref), slog.String("reason", res.Error))
		if src == "" {
			return dom.Capture{}, dom.ErrNoSource
		}
		pixels = nil
	}
	return dom.NewCapture(src, pixels, e.page.loader), nil
}

func (e *element) Text() string {
	var text string
	if err := e.page.eval(call("text", e.ref), &text); err != nil {
		e.page.logger.Debug("failed to read text", slog.String("ref", e.ref), slog.String("error", err.Error()))
	}
	return text
}

// call builds a bridge call with one string argument.
func call(fn, arg string) string {
	return "window.__mediatrack." + fn + "(" + jsString(arg) + ")"
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
