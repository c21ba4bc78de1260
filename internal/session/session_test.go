package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/mediatrack/internal/classifier"
	"github.com/nao1215/mediatrack/internal/dispatch"
	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/imaging"
	"github.com/nao1215/mediatrack/internal/loop"
	"github.com/nao1215/mediatrack/internal/model"
	"github.com/nao1215/mediatrack/internal/overlay"
	"github.com/nao1215/mediatrack/internal/votes"
)

type stubDetector struct{}

func (stubDetector) Detect(context.Context, []byte) (classifier.Result, error) {
	return classifier.Result{FakeProbability: 0.87}, nil
}

type stubClipboard struct {
	value string
	err   error
}

func (s stubClipboard) Read(context.Context) (string, error) {
	return s.value, s.err
}

type harness struct {
	page       *dom.Page
	ctl        *Controller
	dispatcher *dispatch.Dispatcher
	store      votes.Store
}

func newHarness(t *testing.T, body string, opts ...Option) *harness {
	t.Helper()

	p, err := dom.ParseString(body, "http://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	return newPageHarness(t, p, opts...)
}

func newPageHarness(t *testing.T, p *dom.Page, opts ...Option) *harness {
	t.Helper()

	store, err := votes.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	l := loop.New()
	d := dispatch.New(l, store, stubDetector{}, dispatch.WithPulse(time.Millisecond))
	ctl := New(p, l, d, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ctl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &harness{page: p, ctl: ctl, dispatcher: d, store: store}
}

// settle waits for background requests and their posted updates.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	h.dispatcher.Wait()
	if _, err := h.ctl.Status(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) start(t *testing.T) int {
	t.Helper()
	n, err := h.ctl.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return n
}

const scenarioPage = `<body>
	<img id="small" src="small.png" width="40" height="40">
	<img id="medium" src="medium.png" style="left: 0px; top: 100px; width: 200px; height: 150px">
	<img id="large" src="large.png" style="left: 0px; top: 400px; width: 500px; height: 400px">
	<video id="clip" src="clip.mp4" style="left: 0px; top: 900px; width: 320px; height: 240px"></video>
</body>`

func TestScenario(t *testing.T) {
	t.Parallel()

	h := newHarness(t, scenarioPage)
	ctx := context.Background()

	if n := h.start(t); n != 3 {
		t.Fatalf("expected 3 tracked elements, got %d", n)
	}

	st, err := h.ctl.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Active || st.Count != 3 {
		t.Errorf("unexpected status %+v", st)
	}
	want := []model.EntryStatus{
		{Kind: model.MediaKindImage, Source: "http://example.com/medium.png"},
		{Kind: model.MediaKindImage, Source: "http://example.com/large.png"},
		{Kind: model.MediaKindVideo, Source: "http://example.com/clip.mp4"},
	}
	for i := range want {
		if st.Entries[i] != want[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, want[i], st.Entries[i])
		}
	}
	if len(h.page.Overlays()) != 3 {
		t.Errorf("expected 3 overlays, got %d", len(h.page.Overlays()))
	}

	if err := h.ctl.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	st, err = h.ctl.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Active || st.Count != 0 || len(st.Entries) != 0 {
		t.Errorf("unexpected status after stop %+v", st)
	}
	if len(h.page.Overlays()) != 0 {
		t.Errorf("expected no leftover overlays, got %d", len(h.page.Overlays()))
	}
	h.settle(t)
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	t.Run("second start is a no-op", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, scenarioPage)
		first := h.start(t)
		second := h.start(t)
		if first != second {
			t.Errorf("expected same count, got %d then %d", first, second)
		}
		if len(h.page.Overlays()) != first {
			t.Errorf("expected one set of overlays, got %d", len(h.page.Overlays()))
		}
		h.settle(t)
	})

	t.Run("stop when stopped is a no-op", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, scenarioPage)
		if err := h.ctl.Stop(context.Background()); err != nil {
			t.Fatal(err)
		}
		st, err := h.ctl.Status(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if st.Active || st.Count != 0 {
			t.Errorf("unexpected status %+v", st)
		}
	})

	t.Run("restart rescans", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, scenarioPage)
		h.start(t)
		if err := h.ctl.Stop(context.Background()); err != nil {
			t.Fatal(err)
		}
		if err := h.page.AppendHTML(`<video src="late.mp4"></video>`); err != nil {
			t.Fatal(err)
		}
		if n := h.start(t); n != 4 {
			t.Errorf("expected 4 after restart, got %d", n)
		}
		h.settle(t)
	})

	t.Run("empty page", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, `<body><p>nothing</p></body>`)
		if n := h.start(t); n != 0 {
			t.Errorf("expected 0, got %d", n)
		}
		st, err := h.ctl.Status(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !st.Active {
			t.Error("session should be active even with nothing tracked")
		}
	})

	t.Run("overlays show initial tallies", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, scenarioPage)
		if _, err := h.store.Vote(context.Background(), "http://example.com/medium.png", false); err != nil {
			t.Fatal(err)
		}
		h.start(t)
		h.settle(t)

		entries, err := h.ctl.Entries(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		var text string
		var style overlay.Style
		if err := h.ctl.loop.Call(context.Background(), func() {
			text = entries[0].Overlay.TallyText()
			style = entries[0].Overlay.Style()
		}); err != nil {
			t.Fatal(err)
		}
		if text != "0 fake, 1 real" || style != overlay.LeansRealStyle {
			t.Errorf("unexpected display %q %+v", text, style)
		}
	})
}

func TestReposition(t *testing.T) {
	t.Parallel()

	h := newHarness(t, `<body>
		<img src="a.png" style="position: fixed; left: 10px; top: 20px; width: 100px; height: 80px">
		<video src="v.mp4" style="position: fixed; left: 200px; top: 50px; width: 300px; height: 200px"></video>
	</body>`)
	h.start(t)
	ctx := context.Background()

	frames := func() []dom.Rect {
		t.Helper()
		var out []dom.Rect
		entries, err := h.ctl.Entries(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if err := h.ctl.loop.Call(ctx, func() {
			for _, e := range entries {
				out = append(out, e.Overlay.Frame())
			}
		}); err != nil {
			t.Fatal(err)
		}
		return out
	}

	before := frames()
	for range 50 {
		h.page.ScrollBy(3, 7)
	}
	after := frames()

	for i := range before {
		dx, dy := after[i].X-before[i].X, after[i].Y-before[i].Y
		if dx != 150 || dy != 350 {
			t.Errorf("overlay %d moved by (%v,%v), expected (150,350)", i, dx, dy)
		}
		if after[i].Width != before[i].Width || after[i].Height != before[i].Height {
			t.Errorf("overlay %d changed size", i)
		}
	}
	h.settle(t)
}

func TestRepositionSkipsDetached(t *testing.T) {
	t.Parallel()

	h := newHarness(t, `<body>
		<img id="gone" src="a.png" style="position: fixed; left: 10px; top: 20px; width: 100px; height: 80px">
		<img id="kept" src="b.png" style="position: fixed; left: 10px; top: 200px; width: 100px; height: 80px">
	</body>`)
	h.start(t)
	ctx := context.Background()

	entries, err := h.ctl.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.page.Remove(entries[0].Element); err != nil {
		t.Fatal(err)
	}
	h.page.ScrollBy(0, 100)

	st, err := h.ctl.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 2 {
		t.Errorf("detached entries stay tracked until stop, got %d", st.Count)
	}
	if err := h.ctl.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if len(h.page.Overlays()) != 0 {
		t.Error("stop should remove every overlay")
	}
	h.settle(t)
}

func TestClicks(t *testing.T) {
	t.Parallel()

	src := pngDataURL(t)
	h := newHarness(t, `<body><img src="`+src+`" width="120" height="120"></body>`)
	h.start(t)
	h.settle(t)
	ctx := context.Background()

	entries, err := h.ctl.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var fakeID, analyzeID string
	if err := h.ctl.loop.Call(ctx, func() {
		fakeID = entries[0].Overlay.FakeButton.ID
		analyzeID = entries[0].Overlay.AnalyzeButton.ID
	}); err != nil {
		t.Fatal(err)
	}

	if err := h.page.Click(fakeID); err != nil {
		t.Fatal(err)
	}
	if err := h.page.Click(analyzeID); err != nil {
		t.Fatal(err)
	}

	// Clicks are queued on the loop; wait until both handlers ran.
	waitUntil(t, func() bool {
		h.dispatcher.Wait()
		var done bool
		_ = h.ctl.loop.Call(ctx, func() {
			done = entries[0].Overlay.ResultText() == "87.0% - Likely Deepfake" &&
				entries[0].Overlay.TallyText() == "1 fake, 0 real"
		})
		return done
	})

	tally, err := h.store.Tally(ctx, model.Identity(src))
	if err != nil {
		t.Fatal(err)
	}
	if tally.FakeVotes != 1 || tally.RealVotes != 0 {
		t.Errorf("unexpected stored tally %+v", tally)
	}
	if unrelated, _ := h.store.Tally(ctx, "http://example.com/other.png"); unrelated.Total() != 0 {
		t.Error("unrelated identities must be untouched")
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func pngDataURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatal(err)
	}
	return imaging.DataURL("image/png", buf.Bytes())
}

func TestImageData(t *testing.T) {
	t.Parallel()

	src := pngDataURL(t)
	h := newHarness(t, `<body><img src="`+src+`"><img src="remote.png"></body>`)
	ctx := context.Background()

	got, err := h.ctl.ImageData(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("expected JPEG data URL, got %q", got[:min(len(got), 40)])
	}

	if _, err := h.ctl.ImageData(ctx, "http://example.com/missing.png"); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound, got %v", err)
	}
	if _, err := h.ctl.ImageData(ctx, "http://example.com/remote.png"); !errors.Is(err, ErrImageData) {
		t.Errorf("expected ErrImageData, got %v", err)
	}
}

func TestSlowImageHost(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	loads := make(chan string, 4)
	loader := dom.LoaderFunc(func(ctx context.Context, rawURL string) ([]byte, error) {
		loads <- rawURL
		select {
		case <-release:
			return nil, errors.New("host went away")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	p, err := dom.ParseString(`<body><img src="slow.png" width="120" height="120"></body>`,
		"http://example.com/", dom.WithLoader(loader))
	if err != nil {
		t.Fatal(err)
	}
	h := newPageHarness(t, p)
	t.Cleanup(func() { close(release) })

	h.start(t)
	h.settle(t)
	ctx := context.Background()

	entries, err := h.ctl.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var analyzeID string
	if err := h.ctl.loop.Call(ctx, func() { analyzeID = entries[0].Overlay.AnalyzeButton.ID }); err != nil {
		t.Fatal(err)
	}
	if err := h.page.Click(analyzeID); err != nil {
		t.Fatal(err)
	}
	<-loads

	imageDone := make(chan error, 1)
	go func() {
		_, err := h.ctl.ImageData(ctx, "http://example.com/slow.png")
		imageDone <- err
	}()
	<-loads

	// Both reads are stuck on the image host; the session must still answer.
	deadline, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	st, err := h.ctl.Status(deadline)
	if err != nil {
		t.Fatalf("status blocked by a slow image host: %v", err)
	}
	if !st.Active || st.Count != 1 {
		t.Errorf("unexpected status %+v", st)
	}
	if err := h.ctl.Stop(deadline); err != nil {
		t.Fatalf("stop blocked by a slow image host: %v", err)
	}
	if n := len(h.page.Overlays()); n != 0 {
		t.Errorf("expected overlays removed, found %d", n)
	}

	select {
	case err := <-imageDone:
		t.Fatalf("image read finished before the host answered: %v", err)
	default:
	}
}

func TestArticleText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "article element",
			body: `<body><p>outside</p><article><h1>Head</h1><p>Body text.</p></article></body>`,
			want: "Head Body text.",
		},
		{
			name: "paragraph fallback",
			body: `<body><p>One.</p><div><p>Two.</p></div></body>`,
			want: "One.\nTwo.",
		},
		{
			name: "no text",
			body: `<body><img src="a.png"></body>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, tt.body)
			got, err := h.ctl.ArticleText(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClipboardImage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, `<body></body>`, WithClipboard(stubClipboard{value: "data:image/png;base64,AAAA"}))
	got, err := h.ctl.ClipboardImage(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != "data:image/png;base64,AAAA" {
		t.Errorf("unexpected data %q", got)
	}

	bare := newHarness(t, `<body></body>`)
	if _, err := bare.ctl.ClipboardImage(context.Background()); err == nil {
		t.Error("expected error without clipboard")
	}
}

func TestConcurrentRequests(t *testing.T) {
	t.Parallel()

	h := newHarness(t, scenarioPage)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = h.ctl.Start(ctx)
			} else {
				_, _ = h.ctl.Status(ctx)
			}
		}()
	}
	wg.Wait()

	if len(h.page.Overlays()) != 3 {
		t.Errorf("expected exactly one set of overlays, got %d", len(h.page.Overlays()))
	}
	h.settle(t)
}
