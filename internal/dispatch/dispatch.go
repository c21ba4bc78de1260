package dispatch

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/mediatrack/internal/classifier"
	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/imaging"
	"github.com/nao1215/mediatrack/internal/log"
	"github.com/nao1215/mediatrack/internal/loop"
	"github.com/nao1215/mediatrack/internal/model"
	"github.com/nao1215/mediatrack/internal/tracker"
	"github.com/nao1215/mediatrack/internal/votes"
)

// Detector classifies a JPEG image.
type Detector interface {
	Detect(ctx context.Context, jpeg []byte) (classifier.Result, error)
}

// Dispatcher runs vote, analysis and tally requests for tracked entries.
type Dispatcher struct {
	loop     *loop.Loop
	store    votes.Store
	detector Detector
	logger   *slog.Logger

	// maxDimension bounds the longer side of uploaded images.
	maxDimension int

	// quality is the JPEG quality of uploaded images.
	quality int

	// concurrency bounds parallel tally fetches.
	concurrency int

	// pulse is how long a vote button shows its pressed colour.
	pulse time.Duration

	// wg tracks background work so tests can wait for it.
	wg sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithMaxDimension bounds the longer side of uploaded images.
func WithMaxDimension(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxDimension = n
		}
	}
}

// WithJPEGQuality sets the upload JPEG quality.
func WithJPEGQuality(q int) Option {
	return func(d *Dispatcher) {
		if q > 0 && q <= 100 {
			d.quality = q
		}
	}
}

// WithConcurrency bounds parallel tally fetches.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithPulse sets how long a vote button stays pressed.
func WithPulse(p time.Duration) Option {
	return func(d *Dispatcher) {
		if p > 0 {
			d.pulse = p
		}
	}
}

// New creates a Dispatcher that posts display updates to l.
func New(l *loop.Loop, store votes.Store, detector Detector, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		loop:         l,
		store:        store,
		detector:     detector,
		logger:       log.Discard(),
		maxDimension: 1024,
		quality:      92,
		concurrency:  4,
		pulse:        500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Attach wires the entry's overlay controls to this dispatcher. ctx bounds
// the requests the controls start. Must run on the loop.
func (d *Dispatcher) Attach(ctx context.Context, e *tracker.Entry) {
	o := e.Overlay
	if o == nil || !o.HasControls() {
		return
	}
	o.FakeButton.OnClick = func() { d.Vote(ctx, e, true) }
	o.RealButton.OnClick = func() { d.Vote(ctx, e, false) }
	o.AnalyzeButton.OnClick = func() { d.Analyze(ctx, e) }
}

// Vote records a vote for the entry's identity. On success the tally and
// frame style are refreshed from the store's reply and the clicked button
// pulses; on failure the display is left unchanged. Must run on the loop.
func (d *Dispatcher) Vote(ctx context.Context, e *tracker.Entry, isFake bool) {
	o := e.Overlay
	identity := e.Identity

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		tally, err := d.store.Vote(ctx, identity, isFake)
		if err != nil {
			d.logger.Warn("vote failed", "identity", identity, "fake", isFake, "error", err)
			return
		}

		// Counted before posting so Wait also covers the pulse reset.
		d.wg.Add(1)
		posted := d.loop.Post(func() {
			if err := o.ApplyTally(tally); err != nil {
				d.logger.Debug("failed to show tally", "identity", identity, "error", err)
			}
			if err := o.SetPressed(isFake, true); err != nil {
				d.logger.Debug("failed to press button", "identity", identity, "error", err)
			}
			time.AfterFunc(d.pulse, func() {
				defer d.wg.Done()
				d.post(func() { _ = o.SetPressed(isFake, false) })
			})
		})
		if !posted {
			d.wg.Done()
		}
	}()
}

// Analyze sends the element's current pixels to the classifier and shows
// the verdict. Only the capture happens here; loading, decoding and the
// upload run in the background. Must run on the loop.
func (d *Dispatcher) Analyze(ctx context.Context, e *tracker.Entry) {
	o := e.Overlay
	if o == nil || !o.HasControls() {
		return
	}
	identity := e.Identity

	_ = o.SetResult(classifier.AnalyzingText)

	// Captured now so the upload reflects the element as it is at click time.
	capture, err := e.Element.Capture(ctx)
	if err != nil {
		d.logger.Warn("failed to read image pixels", "identity", identity, "error", err)
		_ = o.SetResult(classifier.FailedText)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		res, err := d.analyze(ctx, identity, capture)
		if err != nil {
			d.logger.Warn("analysis failed", "identity", identity, "error", err)
		} else {
			d.logger.Info("analysis complete", "identity", identity, "fake_probability", res.FakeProbability)
		}
		text := classifier.DisplayText(res, err)
		d.post(func() { _ = o.SetResult(text) })
	}()
}

// analyze reads the captured pixels and classifies them.
func (d *Dispatcher) analyze(ctx context.Context, identity string, capture dom.Capture) (classifier.Result, error) {
	data, err := capture.Encoded(ctx)
	if err != nil {
		return classifier.Result{}, fmt.Errorf("failed to read image: %w", err)
	}
	if capture.Pixels == nil {
		classifier.LogMetadata(d.logger, identity, data)
	}
	img, _, err := imaging.Decode(data)
	if err != nil {
		return classifier.Result{}, err
	}
	return d.detect(ctx, img)
}

func (d *Dispatcher) detect(ctx context.Context, img image.Image) (classifier.Result, error) {
	jpeg, err := imaging.EncodeJPEG(imaging.Fit(img, d.maxDimension), d.quality)
	if err != nil {
		return classifier.Result{}, fmt.Errorf("failed to encode image: %w", err)
	}
	return d.detector.Detect(ctx, jpeg)
}

// LoadTallies fetches the initial tally of every image entry with bounded
// concurrency. Unreachable stores show a zero tally. Must run on the loop.
func (d *Dispatcher) LoadTallies(ctx context.Context, entries []*tracker.Entry) {
	var targets []*tracker.Entry
	for _, e := range entries {
		if e.Overlay != nil && e.Overlay.HasControls() {
			targets = append(targets, e)
		}
	}
	if len(targets) == 0 {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		g := new(errgroup.Group)
		g.SetLimit(d.concurrency)
		for _, e := range targets {
			g.Go(func() error {
				tally, err := d.store.Tally(ctx, e.Identity)
				if err != nil {
					d.logger.Debug("failed to load tally", "identity", e.Identity, "error", err)
					tally = model.NewTally(e.Identity)
				}
				d.post(func() { _ = e.Overlay.ApplyTally(tally) })
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// Wait blocks until all background requests have finished and posted
// their results. The results may still be queued on the loop.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) post(fn func()) {
	if !d.loop.Post(fn) {
		d.logger.Debug("event loop stopped, dropping update")
	}
}
