package tracker

import (
	"github.com/nao1215/mediatrack/internal/dom"
	"github.com/nao1215/mediatrack/internal/overlay"
)

// Reposition moves every overlay back over its element after a scroll or
// resize. Entries whose element has left the document are skipped and
// keep their last frame. It returns the number of overlays moved.
func (r *Registry) Reposition(doc dom.Document) int {
	scroll := doc.Scroll()
	moved := 0
	for _, e := range r.entries {
		if e.Overlay == nil || !e.Element.Attached() {
			continue
		}
		frame := overlay.FrameFor(e.Element.BoundingClientRect(), scroll)
		if frame == e.Overlay.Frame() {
			continue
		}
		if err := e.Overlay.SetFrame(frame); err != nil {
			r.logger.Debug("failed to move overlay", "identity", e.Identity, "error", err)
			continue
		}
		moved++
	}
	return moved
}
