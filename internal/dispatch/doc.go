// Package dispatch handles user interactions with overlay controls.
//
// A vote, an analysis and the initial tally load each start a network
// call in its own goroutine. Results are posted back to the event loop,
// which is the only place overlays are mutated. Requests are neither
// cancelled nor ordered against each other: whichever completes last
// owns the display region it writes.
package dispatch
