// Package overlay builds the highlight frames drawn over tracked media.
//
// An Overlay is a tree of dom.Node values: a frame positioned over the
// element, a label strip naming the media kind and, for images, the vote
// and analysis controls. The frame is mounted as a direct child of the
// page body and is owned by exactly one tracked entry.
//
// Overlays are not safe for concurrent use; they belong to the event loop.
package overlay
