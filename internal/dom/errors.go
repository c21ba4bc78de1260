package dom

import "errors"

var (
	// ErrDetached is returned when an element is no longer part of the document.
	ErrDetached = errors.New("element is detached from the document")

	// ErrNotMounted is returned when an overlay node is not mounted.
	ErrNotMounted = errors.New("node is not mounted")

	// ErrNotRasterizable is returned for elements whose pixels cannot be read.
	ErrNotRasterizable = errors.New("element cannot be rasterized")

	// ErrNoSource is returned for elements without a resource URL.
	ErrNoSource = errors.New("element has no source")

	// ErrNoLoader is returned when a remote resource is needed but no Loader is configured.
	ErrNoLoader = errors.New("no resource loader configured")

	// ErrNoPaste is returned when no paste arrived before the capture ended.
	ErrNoPaste = errors.New("no paste captured")

	// ErrNodeNotFound is returned when a click targets an unknown node.
	ErrNodeNotFound = errors.New("node not found")
)
