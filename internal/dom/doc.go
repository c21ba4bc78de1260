// Package dom defines the page model mediatrack operates on.
//
// A Document is a live, externally mutated page: elements can appear,
// move, resize or vanish between any two calls, so callers never cache
// geometry and always re-query. Overlays are page-level Nodes mounted as
// direct children of the body.
//
// Two implementations exist:
//   - Page (this package): an in-memory model parsed from HTML with
//     golang.org/x/net/html. Geometry comes from inline style (left, top,
//     width, height) and the width/height attributes; resources are read
//     through a Loader. Scroll, resize, click and paste are driven through
//     methods so that tests and headless runs can simulate a user.
//   - browser.Page: a live Chromium tab driven over CDP.
//
// Documents are not safe for arbitrary concurrent use; the session runs
// every call on its single event loop. Page guards its own state with a
// mutex because tests drive it from other goroutines.
package dom
