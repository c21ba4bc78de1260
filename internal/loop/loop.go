// Package loop provides the single logical thread that owns the page.
//
// Every scan, overlay mutation and registry access runs as a task on one
// Loop goroutine, in the order the tasks were posted. Code running
// elsewhere (network calls, event sources) hands work to the loop with
// Post or Call and never touches page state directly.
package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned by Call when the loop is not accepting tasks.
var ErrStopped = errors.New("event loop stopped")

// Loop runs posted tasks one at a time in FIFO order.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool

	// running is set while Run is executing.
	running atomic.Bool
}

// New creates a Loop. Tasks posted before Run are kept and executed once
// Run starts.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled. Tasks still queued at that
// point are discarded. Run must be called at most once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("event loop already running")
	}
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		l.mu.Lock()
		var task func()
		if len(l.queue) > 0 {
			task = l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
		}
		l.mu.Unlock()

		if task != nil {
			task()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Post queues fn. It reports false when the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and waits for it to finish. It returns
// ErrStopped if the loop stops first, or ctx.Err() if ctx ends first.
// fn may still run after Call returns early.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// The task may have completed just before shutdown.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Coalescer folds bursts of a signal into at most one pending task.
type Coalescer struct {
	loop    *Loop
	fn      func()
	pending atomic.Bool
}

// NewCoalescer creates a Coalescer that runs fn on l.
func NewCoalescer(l *Loop, fn func()) *Coalescer {
	return &Coalescer{loop: l, fn: fn}
}

// Signal schedules fn unless a run is already pending. Safe from any goroutine.
func (c *Coalescer) Signal() {
	if !c.pending.CompareAndSwap(false, true) {
		return
	}
	if !c.loop.Post(c.run) {
		c.pending.Store(false)
	}
}

func (c *Coalescer) run() {
	// Clear first so a signal raised during fn schedules another pass.
	c.pending.Store(false)
	c.fn()
}
