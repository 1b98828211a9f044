// Package stream is a small push-based reactive runtime.
//
// Every subscription, emission and operator callback runs on a single Loop
// goroutine, so derived state needs no locking. Code running elsewhere hands
// work to the loop with Post, Call or First.
package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when work is handed to a loop that has stopped.
var ErrClosed = errors.New("stream: loop closed")

// Loop is a cooperative FIFO executor. Tasks run one at a time, in the order
// they were posted, on the goroutine that called Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	started atomic.Bool
}

func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. It never blocks and reports false if the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
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

// Run executes posted tasks until ctx is cancelled. Pending tasks are
// discarded on exit. Run must be called at most once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return errors.New("stream: loop already running")
	}
	defer func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.wake:
			}
			continue
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Drain waits until the queue is empty and no task is running. Tasks posted
// by other tasks are drained too.
func (l *Loop) Drain(ctx context.Context) error {
	for {
		idle := make(chan bool, 1)
		if !l.Post(func() {
			l.mu.Lock()
			idle <- len(l.queue) == 0
			l.mu.Unlock()
		}) {
			return ErrClosed
		}

		select {
		case empty := <-idle:
			if empty {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return ErrClosed
		}
	}
}
