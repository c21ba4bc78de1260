package model

import (
	"sort"
	"time"
)

// VoteSummary aggregates stored tallies for reporting.
type VoteSummary struct {
	// GeneratedAt is when the summary was built.
	GeneratedAt time.Time `json:"generatedAt"`

	// Images is the number of identities with at least one vote.
	Images int `json:"images"`

	// FakeVotes is the sum of every fake counter.
	FakeVotes int `json:"fakeVotes"`

	// RealVotes is the sum of every real counter.
	RealVotes int `json:"realVotes"`

	// LeaningFake counts identities whose tally leans fake.
	LeaningFake int `json:"leaningFake"`

	// LeaningReal counts identities whose tally leans real.
	LeaningReal int `json:"leaningReal"`

	// Tallies holds the voted identities, most votes first.
	Tallies []Tally `json:"tallies"`
}

// NewVoteSummary builds a summary from tallies. Tallies without votes are
// left out. The input slice is not modified.
func NewVoteSummary(tallies []Tally, now time.Time) *VoteSummary {
	s := &VoteSummary{
		GeneratedAt: now.UTC(),
		Tallies:     make([]Tally, 0, len(tallies)),
	}
	for _, t := range tallies {
		if t.Total() == 0 {
			continue
		}
		s.Tallies = append(s.Tallies, t)
		s.FakeVotes += t.FakeVotes
		s.RealVotes += t.RealVotes
		if t.LeansFake() {
			s.LeaningFake++
		} else {
			s.LeaningReal++
		}
	}
	s.Images = len(s.Tallies)

	sort.SliceStable(s.Tallies, func(i, j int) bool {
		if s.Tallies[i].Total() != s.Tallies[j].Total() {
			return s.Tallies[i].Total() > s.Tallies[j].Total()
		}
		return s.Tallies[i].ImageURL < s.Tallies[j].ImageURL
	})
	return s
}

// TotalVotes returns the number of votes across all identities.
func (s *VoteSummary) TotalVotes() int {
	return s.FakeVotes + s.RealVotes
}

// HasVotes reports whether any vote was recorded.
func (s *VoteSummary) HasVotes() bool {
	return s.TotalVotes() > 0
}
