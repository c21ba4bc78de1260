package votes

import (
	"context"
	"sync"
	"testing"
)

func TestLocalStore(t *testing.T) {
	t.Parallel()

	t.Run("unknown image has zero tally", func(t *testing.T) {
		t.Parallel()

		s, err := NewLocalStore(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		got, err := s.Tally(context.Background(), "http://x/a.png")
		if err != nil {
			t.Fatal(err)
		}
		if got.Total() != 0 || got.ImageURL != "http://x/a.png" {
			t.Errorf("unexpected tally %+v", got)
		}
	})

	t.Run("each vote increments exactly one counter", func(t *testing.T) {
		t.Parallel()

		s, err := NewLocalStore(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		ctx := context.Background()

		got, err := s.Vote(ctx, "a", true)
		if err != nil {
			t.Fatal(err)
		}
		if got.FakeVotes != 1 || got.RealVotes != 0 {
			t.Errorf("unexpected tally after fake vote %+v", got)
		}
		got, err = s.Vote(ctx, "a", false)
		if err != nil {
			t.Fatal(err)
		}
		if got.FakeVotes != 1 || got.RealVotes != 1 {
			t.Errorf("unexpected tally after real vote %+v", got)
		}
		if got.LastUpdated.IsZero() {
			t.Error("last updated should be set")
		}
	})

	t.Run("persists across instances", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx := context.Background()

		s1, err := NewLocalStore(dir)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s1.Vote(ctx, "b", true); err != nil {
			t.Fatal(err)
		}
		if _, err := s1.Vote(ctx, "a", false); err != nil {
			t.Fatal(err)
		}

		s2, err := NewLocalStore(dir)
		if err != nil {
			t.Fatal(err)
		}
		all, err := s2.All(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 || all[0].ImageURL != "a" || all[1].ImageURL != "b" {
			t.Fatalf("unexpected tallies %+v", all)
		}
		if all[1].FakeVotes != 1 {
			t.Errorf("unexpected tally %+v", all[1])
		}
	})

	t.Run("concurrent votes are not lost", func(t *testing.T) {
		t.Parallel()

		s, err := NewLocalStore(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.Vote(ctx, "c", i%2 == 0)
			}()
		}
		wg.Wait()

		got, err := s.Tally(ctx, "c")
		if err != nil {
			t.Fatal(err)
		}
		if got.FakeVotes != 10 || got.RealVotes != 10 {
			t.Errorf("expected 10/10, got %d/%d", got.FakeVotes, got.RealVotes)
		}
	})

	t.Run("rejects empty directory", func(t *testing.T) {
		t.Parallel()

		if _, err := NewLocalStore(""); err == nil {
			t.Error("expected error")
		}
	})
}
