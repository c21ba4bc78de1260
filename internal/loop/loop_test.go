package loop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l, cancel
}

func TestLoop(t *testing.T) {
	t.Parallel()

	t.Run("runs tasks in order", func(t *testing.T) {
		t.Parallel()

		l, _ := startLoop(t)
		var got []int
		for i := range 100 {
			l.Post(func() { got = append(got, i) })
		}
		if err := l.Call(context.Background(), func() {}); err != nil {
			t.Fatal(err)
		}
		for i, v := range got {
			if v != i {
				t.Fatalf("task %d ran at position %d", v, i)
			}
		}
		if len(got) != 100 {
			t.Errorf("expected 100 tasks, got %d", len(got))
		}
	})

	t.Run("tasks posted before Run are kept", func(t *testing.T) {
		t.Parallel()

		l := New()
		ran := false
		l.Post(func() { ran = true })

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = l.Run(ctx) }()

		if err := l.Call(ctx, func() {}); err != nil {
			t.Fatal(err)
		}
		if !ran {
			t.Error("pre-posted task should have run")
		}
	})

	t.Run("tasks never overlap", func(t *testing.T) {
		t.Parallel()

		l, _ := startLoop(t)
		var wg sync.WaitGroup
		counter := 0
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = l.Call(context.Background(), func() { counter++ })
			}()
		}
		wg.Wait()
		if err := l.Call(context.Background(), func() {}); err != nil {
			t.Fatal(err)
		}
		if counter != 50 {
			t.Errorf("expected 50, got %d", counter)
		}
	})

	t.Run("post after stop fails", func(t *testing.T) {
		t.Parallel()

		l := New()
		ctx, cancel := context.WithCancel(context.Background())
		go func() { _ = l.Run(ctx) }()
		cancel()
		<-l.Done()

		if l.Post(func() {}) {
			t.Error("Post should fail after stop")
		}
		if err := l.Call(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
			t.Errorf("expected ErrStopped, got %v", err)
		}
	})

	t.Run("second Run is rejected", func(t *testing.T) {
		t.Parallel()

		l, _ := startLoop(t)
		if err := l.Call(context.Background(), func() {}); err != nil {
			t.Fatal(err)
		}
		if err := l.Run(context.Background()); err == nil {
			t.Error("expected error for second Run")
		}
	})

	t.Run("Call honours its context", func(t *testing.T) {
		t.Parallel()

		l, _ := startLoop(t)
		release := make(chan struct{})
		l.Post(func() { <-release })
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := l.Call(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestCoalescer(t *testing.T) {
	t.Parallel()

	l, _ := startLoop(t)
	release := make(chan struct{})
	l.Post(func() { <-release })

	runs := 0
	c := NewCoalescer(l, func() { runs++ })
	for range 1000 {
		c.Signal()
	}
	close(release)

	if err := l.Call(context.Background(), func() {}); err != nil {
		t.Fatal(err)
	}
	if runs != 1 {
		t.Errorf("expected a single coalesced run, got %d", runs)
	}

	c.Signal()
	if err := l.Call(context.Background(), func() {}); err != nil {
		t.Fatal(err)
	}
	if runs != 2 {
		t.Errorf("expected a second run after the first completed, got %d", runs)
	}
}
