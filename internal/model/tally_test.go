package model

import (
	"strings"
	"testing"
	"time"
)

func TestTally(t *testing.T) {
	t.Parallel()

	t.Run("new tally is empty and leans fake", func(t *testing.T) {
		t.Parallel()

		tally := NewTally("https://example.com/a.png")
		if tally.Total() != 0 || !tally.LeansFake() {
			t.Errorf("unexpected tally %+v", tally)
		}
		if tally.ImageURL != "https://example.com/a.png" {
			t.Errorf("unexpected url %q", tally.ImageURL)
		}
	})

	t.Run("add increments exactly one counter", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		base := Tally{ImageURL: "u", FakeVotes: 2, RealVotes: 2}

		fake := base.Add(true, now)
		if fake.FakeVotes != 3 || fake.RealVotes != 2 || !fake.LastUpdated.Equal(now) {
			t.Errorf("unexpected tally after fake vote %+v", fake)
		}
		realTally := base.Add(false, now)
		if realTally.FakeVotes != 2 || realTally.RealVotes != 3 || realTally.LeansFake() {
			t.Errorf("unexpected tally after real vote %+v", realTally)
		}
		if base.Total() != 4 {
			t.Error("Add must not modify the receiver")
		}
	})
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	t.Run("remote URLs are kept", func(t *testing.T) {
		t.Parallel()

		if got := Identity(" https://example.com/a.png "); got != "https://example.com/a.png" {
			t.Errorf("unexpected identity %q", got)
		}
	})

	t.Run("empty sources have no identity", func(t *testing.T) {
		t.Parallel()

		for _, src := range []string{"", "  ", NoSource} {
			if got := Identity(src); got != "" {
				t.Errorf("Identity(%q) = %q, want empty", src, got)
			}
		}
	})

	t.Run("data URLs are digested", func(t *testing.T) {
		t.Parallel()

		a := Identity("data:image/png;base64,AAAA")
		b := Identity("DATA:image/png;base64,AAAA")
		if !strings.HasPrefix(a, "sha3-256:") || len(a) != len("sha3-256:")+64 {
			t.Errorf("unexpected digest identity %q", a)
		}
		if a != Identity("data:image/png;base64,AAAA") {
			t.Error("identity must be stable")
		}
		if a == b {
			t.Error("different URLs must not collide")
		}
	})

	t.Run("short id", func(t *testing.T) {
		t.Parallel()

		id := ShortID("https://example.com/a.png")
		if len(id) != 12 || id != ShortID("https://example.com/a.png") {
			t.Errorf("unexpected short id %q", id)
		}
		if id == ShortID("https://example.com/b.png") {
			t.Error("short ids should differ")
		}
	})
}

func TestVoteSummary(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := NewVoteSummary([]Tally{
		{ImageURL: "b", FakeVotes: 1},
		{ImageURL: "empty"},
		{ImageURL: "a", FakeVotes: 1},
		{ImageURL: "c", FakeVotes: 1, RealVotes: 4},
	}, now)

	if s.Images != 3 || s.FakeVotes != 3 || s.RealVotes != 4 || s.TotalVotes() != 7 {
		t.Errorf("unexpected totals %+v", s)
	}
	if s.LeaningFake != 2 || s.LeaningReal != 1 {
		t.Errorf("unexpected leaning counts %+v", s)
	}
	order := []string{s.Tallies[0].ImageURL, s.Tallies[1].ImageURL, s.Tallies[2].ImageURL}
	if strings.Join(order, ",") != "c,a,b" {
		t.Errorf("unexpected order %v", order)
	}
	if NewVoteSummary(nil, now).HasVotes() {
		t.Error("empty summary has no votes")
	}
}
