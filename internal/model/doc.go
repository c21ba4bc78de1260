// Package model defines the data structures shared across mediatrack.
//
// This package contains the following main types:
//   - MediaKind: the kind of a tracked media element (image or video)
//   - Tally: the crowd-sourced fake/real vote counters for one identity
//   - EntryStatus: the externally visible view of one tracked element
//   - VoteSummary: stored tallies aggregated for reports
//
// Identity derivation also lives here because the tracker, the dispatcher
// and the vote stores must all agree on the same key for a resource.
//
// The models are serializable to JSON for the vote-store API, the control
// protocol and the local fallback blob.
package model
