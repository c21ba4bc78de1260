package model

import "time"

// Tally holds the vote counters for one identity.
// Counters only ever grow by exactly one per accepted vote.
type Tally struct {
	// ImageURL is the identity the counters belong to.
	ImageURL string `json:"imageUrl"`

	// FakeVotes counts "likely fake" votes.
	FakeVotes int `json:"fakeVotes"`

	// RealVotes counts "likely real" votes.
	RealVotes int `json:"realVotes"`

	// LastUpdated is the time of the last accepted vote.
	LastUpdated time.Time `json:"lastUpdated"`
}

// NewTally returns the zero tally used when an identity has no votes yet
// or the vote store could not be reached.
func NewTally(imageURL string) Tally {
	return Tally{
		ImageURL:    imageURL,
		LastUpdated: time.Now().UTC(),
	}
}

// Add returns a copy of t with one vote applied.
func (t Tally) Add(isFake bool, now time.Time) Tally {
	if isFake {
		t.FakeVotes++
	} else {
		t.RealVotes++
	}
	t.LastUpdated = now.UTC()
	return t
}

// LeansFake reports whether fake votes are at least as many as real votes.
// An empty tally leans fake.
func (t Tally) LeansFake() bool {
	return t.FakeVotes >= t.RealVotes
}

// Total returns the number of votes cast.
func (t Tally) Total() int {
	return t.FakeVotes + t.RealVotes
}
