package overlay

import (
	"testing"

	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/model"
)

func TestFrameFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		rect   dom.Rect
		scroll dom.Point
		want   dom.Rect
	}{
		{
			name: "no scroll",
			rect: dom.Rect{X: 10, Y: 20, Width: 100, Height: 50},
			want: dom.Rect{X: 5, Y: 15, Width: 110, Height: 60},
		},
		{
			name:   "scrolled page",
			rect:   dom.Rect{X: 10, Y: -80, Width: 100, Height: 50},
			scroll: dom.Point{X: 0, Y: 300},
			want:   dom.Rect{X: 5, Y: 215, Width: 110, Height: 60},
		},
		{
			name: "zero size element",
			want: dom.Rect{X: -5, Y: -5, Width: 10, Height: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FrameFor(tt.rect, tt.scroll); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestStyleFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fake int
		real int
		want Style
	}{
		{name: "no votes leans fake", want: LeansFakeStyle},
		{name: "tie leans fake", fake: 3, real: 3, want: LeansFakeStyle},
		{name: "more fake", fake: 4, real: 1, want: LeansFakeStyle},
		{name: "more real", fake: 1, real: 2, want: LeansRealStyle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := StyleFor(model.Tally{FakeVotes: tt.fake, RealVotes: tt.real})
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}

	if LeansFakeStyle.Border != "#34a853" || LeansRealStyle.Border != "#ea4335" {
		t.Error("unexpected style colours")
	}
}

func TestFormatTally(t *testing.T) {
	t.Parallel()

	if got := FormatTally(model.Tally{FakeVotes: 2, RealVotes: 7}); got != "2 fake, 7 real" {
		t.Errorf("unexpected tally text %q", got)
	}
}

func newPage(t *testing.T, content string) *dom.Page {
	t.Helper()
	p, err := dom.ParseString(content, "http://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRendererCreate(t *testing.T) {
	t.Parallel()

	t.Run("image overlay has controls", func(t *testing.T) {
		t.Parallel()

		p := newPage(t, `<body><img src="a.png" style="left: 100px; top: 400px; width: 200px; height: 150px"></body>`)
		p.ScrollTo(0, 100)
		img := p.Elements("img")[0]

		r := NewRenderer(p)
		o, err := r.Create(img, model.MediaKindImage, "http://example.com/a.png")
		if err != nil {
			t.Fatal(err)
		}

		if !o.Mounted() || len(p.Overlays()) != 1 || p.Overlays()[0] != o.Root {
			t.Fatal("overlay should be mounted as a page overlay")
		}
		if got := o.Frame(); got != (dom.Rect{X: 95, Y: 395, Width: 210, Height: 160}) {
			t.Errorf("unexpected frame %+v", got)
		}
		if o.Label.Text != "IMAGE" {
			t.Errorf("expected label IMAGE, got %q", o.Label.Text)
		}
		if !o.HasControls() {
			t.Fatal("image overlay should have controls")
		}
		if o.TallyText() != "" || o.ResultText() != "" {
			t.Error("tally and result should start blank")
		}
		if o.Style() != DefaultStyle {
			t.Errorf("expected default style, got %+v", o.Style())
		}
		if o.Root.StyleValue("z-index") != ZIndex {
			t.Error("frame should be elevated")
		}

		short := model.ShortID("http://example.com/a.png")
		o.Root.Walk(func(n *dom.Node) {
			if n.Attrs[IDAttr] != short {
				t.Errorf("node %s missing identity attribute", n.ID)
			}
		})
	})

	t.Run("video overlay has no controls", func(t *testing.T) {
		t.Parallel()

		p := newPage(t, `<body><video src="v.mp4"></video></body>`)
		o, err := NewRenderer(p).Create(p.Elements("video")[0], model.MediaKindVideo, "v")
		if err != nil {
			t.Fatal(err)
		}
		if o.HasControls() {
			t.Error("video overlay should not have controls")
		}
		if o.Label.Text != "VIDEO" {
			t.Errorf("expected label VIDEO, got %q", o.Label.Text)
		}
		if err := o.ApplyTally(model.Tally{RealVotes: 5}); err != nil {
			t.Fatal(err)
		}
		if o.Style() != DefaultStyle {
			t.Error("video overlay style should not change")
		}
	})

	t.Run("only the strip takes clicks", func(t *testing.T) {
		t.Parallel()

		r := NewRenderer(newPage(t, `<body></body>`))
		frame := dom.Rect{Width: 100, Height: 100}

		video := r.Build(frame, model.MediaKindVideo, "v")
		if got := video.Root.StyleValue("pointer-events"); got != "none" {
			t.Errorf("video frame pointer-events = %q, want none", got)
		}
		if got := video.Label.StyleValue("pointer-events"); got != "auto" {
			t.Errorf("video label pointer-events = %q, want auto", got)
		}

		img := r.Build(frame, model.MediaKindImage, "i")
		if got := img.Root.StyleValue("pointer-events"); got != "none" {
			t.Errorf("image frame pointer-events = %q, want none", got)
		}
		for _, n := range []*dom.Node{img.Label, img.FakeButton, img.RealButton, img.AnalyzeButton} {
			if got := n.StyleValue("pointer-events"); got != "auto" {
				t.Errorf("%s pointer-events = %q, want auto", n.ID, got)
			}
		}
	})

	t.Run("node ids are unique per overlay", func(t *testing.T) {
		t.Parallel()

		p := newPage(t, `<body><img src="a.png"></body>`)
		r := NewRenderer(p)
		img := p.Elements("img")[0]
		a, err := r.Create(img, model.MediaKindImage, "x")
		if err != nil {
			t.Fatal(err)
		}
		b, err := r.Create(img, model.MediaKindImage, "x")
		if err != nil {
			t.Fatal(err)
		}
		if a.FakeButton.ID == b.FakeButton.ID {
			t.Error("overlays for the same element should not share node ids")
		}
	})

	t.Run("detached element", func(t *testing.T) {
		t.Parallel()

		p := newPage(t, `<body><img src="a.png"></body>`)
		img := p.Elements("img")[0]
		if err := p.Remove(img); err != nil {
			t.Fatal(err)
		}
		if _, err := NewRenderer(p).Create(img, model.MediaKindImage, "x"); err == nil {
			t.Error("expected error for detached element")
		}
	})
}

func TestOverlayUpdates(t *testing.T) {
	t.Parallel()

	p := newPage(t, `<body><img src="a.png"></body>`)
	o, err := NewRenderer(p).Create(p.Elements("img")[0], model.MediaKindImage, "a")
	if err != nil {
		t.Fatal(err)
	}

	if err := o.ApplyTally(model.Tally{FakeVotes: 1, RealVotes: 4}); err != nil {
		t.Fatal(err)
	}
	if o.TallyText() != "1 fake, 4 real" || o.Style() != LeansRealStyle {
		t.Errorf("unexpected display %q %+v", o.TallyText(), o.Style())
	}

	if err := o.SetResult("Analyzing..."); err != nil {
		t.Fatal(err)
	}
	if o.ResultText() != "Analyzing..." {
		t.Errorf("unexpected result %q", o.ResultText())
	}

	if err := o.SetPressed(true, true); err != nil {
		t.Fatal(err)
	}
	if o.FakeButton.StyleValue("background") != FakePressedColor {
		t.Error("fake button should show pressed colour")
	}
	if err := o.SetPressed(true, false); err != nil {
		t.Fatal(err)
	}
	if o.FakeButton.StyleValue("background") != FakeColor {
		t.Error("fake button should be restored")
	}

	if err := o.SetFrame(dom.Rect{X: 1, Y: 2, Width: 3, Height: 4}); err != nil {
		t.Fatal(err)
	}
	if o.Frame() != (dom.Rect{X: 1, Y: 2, Width: 3, Height: 4}) {
		t.Errorf("unexpected frame %+v", o.Frame())
	}

	if err := o.Remove(); err != nil {
		t.Fatal(err)
	}
	if o.Mounted() {
		t.Error("overlay should be removed")
	}
	if err := o.Remove(); err != nil {
		t.Errorf("second remove should be a no-op, got %v", err)
	}
	if err := o.SetResult("late"); err != nil {
		t.Errorf("updating an unmounted overlay should not fail, got %v", err)
	}
}
