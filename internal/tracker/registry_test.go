package tracker

import (
	"testing"

	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/model"
	"github.com/nao1215/mediatrack/internal/overlay"
)

func setup(t *testing.T, content string) (*dom.Page, *Registry) {
	t.Helper()
	p, err := dom.ParseString(content, "http://example.com/")
	if err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	renderer := overlay.NewRenderer(p)
	for _, el := range p.Elements("img") {
		id := model.Identity(el.Source())
		o, err := renderer.Create(el, model.MediaKindImage, id)
		if err != nil {
			t.Fatal(err)
		}
		reg.Add(&Entry{Element: el, Kind: model.MediaKindImage, Overlay: o, Identity: id})
	}
	return p, reg
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("new registry is empty and inactive", func(t *testing.T) {
		t.Parallel()

		reg := NewRegistry()
		if reg.Len() != 0 || reg.Active() {
			t.Error("expected empty inactive registry")
		}
		if len(reg.Snapshot()) != 0 {
			t.Error("expected empty snapshot")
		}
	})

	t.Run("snapshot reports kind and source", func(t *testing.T) {
		t.Parallel()

		_, reg := setup(t, `<body><img src="a.png"><img></body>`)
		got := reg.Snapshot()
		want := []model.EntryStatus{
			{Kind: model.MediaKindImage, Source: "http://example.com/a.png"},
			{Kind: model.MediaKindImage, Source: model.NoSource},
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("entry %d: expected %+v, got %+v", i, want[i], got[i])
			}
		}
	})

	t.Run("add does not deduplicate", func(t *testing.T) {
		t.Parallel()

		p, reg := setup(t, `<body><img src="a.png"></body>`)
		el := p.Elements("img")[0]
		reg.Add(&Entry{Element: el, Kind: model.MediaKindImage})
		if reg.Len() != 2 {
			t.Errorf("expected 2 entries, got %d", reg.Len())
		}
	})

	t.Run("clear removes overlays and deactivates", func(t *testing.T) {
		t.Parallel()

		p, reg := setup(t, `<body><img src="a.png"><img src="b.png"></body>`)
		reg.SetActive(true)

		// A page script may already have removed one overlay.
		if err := p.Unmount(reg.Entries()[0].Overlay.Root); err != nil {
			t.Fatal(err)
		}

		reg.Clear()
		if reg.Len() != 0 || reg.Active() {
			t.Error("registry should be empty and inactive")
		}
		if len(p.Overlays()) != 0 {
			t.Errorf("expected no overlays, got %d", len(p.Overlays()))
		}
	})

	t.Run("entries is a copy", func(t *testing.T) {
		t.Parallel()

		_, reg := setup(t, `<body><img src="a.png"></body>`)
		entries := reg.Entries()
		entries[0] = nil
		if reg.Entries()[0] == nil {
			t.Error("modifying the returned slice should not affect the registry")
		}
	})
}

func TestReposition(t *testing.T) {
	t.Parallel()

	t.Run("follows scroll", func(t *testing.T) {
		t.Parallel()

		p, reg := setup(t, `<body><img src="a.png" style="left: 10px; top: 1000px; width: 100px; height: 100px"></body>`)
		o := reg.Entries()[0].Overlay
		before := o.Frame()

		p.ScrollTo(0, 500)
		if moved := reg.Reposition(p); moved != 0 {
			t.Errorf("document frame should not change on scroll, moved %d", moved)
		}
		if o.Frame() != before {
			t.Errorf("frame changed from %+v to %+v", before, o.Frame())
		}
	})

	t.Run("follows layout changes", func(t *testing.T) {
		t.Parallel()

		p, reg := setup(t, `<body><img src="a.png" style="left: 10px; top: 20px; width: 100px; height: 100px"></body>`)
		el := reg.Entries()[0].Element
		if err := p.SetGeometry(el, dom.Rect{X: 50, Y: 60, Width: 200, Height: 80}); err != nil {
			t.Fatal(err)
		}
		p.ScrollTo(0, 30)

		if moved := reg.Reposition(p); moved != 1 {
			t.Errorf("expected 1 moved overlay, got %d", moved)
		}
		want := dom.Rect{X: 45, Y: 55, Width: 210, Height: 90}
		if got := reg.Entries()[0].Overlay.Frame(); got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("skips detached elements", func(t *testing.T) {
		t.Parallel()

		p, reg := setup(t, `<body>
			<img src="a.png" style="left: 0px; top: 0px; width: 100px; height: 100px">
			<img src="b.png" style="left: 0px; top: 200px; width: 100px; height: 100px">
		</body>`)
		entries := reg.Entries()
		stale := entries[0].Overlay.Frame()

		if err := p.Remove(entries[0].Element); err != nil {
			t.Fatal(err)
		}
		if err := p.SetGeometry(entries[1].Element, dom.Rect{X: 0, Y: 300, Width: 100, Height: 100}); err != nil {
			t.Fatal(err)
		}

		if moved := reg.Reposition(p); moved != 1 {
			t.Errorf("expected 1 moved overlay, got %d", moved)
		}
		if entries[0].Overlay.Frame() != stale {
			t.Error("detached entry should keep its last frame")
		}
		if reg.Len() != 2 {
			t.Error("reposition must not drop entries")
		}
	})
}
