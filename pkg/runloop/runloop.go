// Package runloop provides serialized, single-consumer task queues. Each Loop
// models one execution context (UI thread, script runtime thread, SDK
// callback thread): tasks posted to it run one at a time in posting order.
package runloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrClosed = errors.New("run loop is closed")

type Loop struct {
	name  string
	limit int
	log   *slog.Logger

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	queue []func()
}

// New starts a loop. A limit of zero or less leaves the queue unbounded.
func New(name string, limit int, log *slog.Logger) *Loop {
	if log == nil {
		log = slog.Default()
	}

	l := &Loop{
		name:    name,
		limit:   limit,
		log:     log.With("loop", name),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post queues fn without blocking. It reports false when the loop is closed
// or the queue limit is reached.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	select {
	case <-l.done:
		return false
	default:
	}

	l.mu.Lock()
	if l.limit > 0 && len(l.queue) >= l.limit {
		l.mu.Unlock()
		l.log.Warn("Task dropped, queue full", "limit", l.limit)
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

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	resultCh := make(chan error, 1)
	posted := l.Post(func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s loop task panicked: %v", l.name, r)
			}
			resultCh <- err
		}()
		err = fn()
	})
	if !posted {
		return ErrClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		select {
		case err := <-resultCh:
			return err
		default:
			return ErrClosed
		}
	case err := <-resultCh:
		return err
	}
}

// Close stops accepting tasks. Tasks already queued are discarded; a running
// task is allowed to finish.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	<-l.stopped
}

func (l *Loop) run() {
	defer close(l.stopped)

	for {
		select {
		case <-l.done:
			l.mu.Lock()
			dropped := len(l.queue)
			l.queue = nil
			l.mu.Unlock()
			if dropped > 0 {
				l.log.Debug("Loop closed with pending tasks", "dropped", dropped)
			}
			return
		case <-l.wake:
			l.drain()
		}
	}
}

func (l *Loop) drain() {
	for {
		select {
		case <-l.done:
			return
		default:
		}

		fn, ok := l.dequeue()
		if !ok {
			return
		}
		l.execute(fn)
	}
}

func (l *Loop) dequeue() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil, false
	}

	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("Task panicked", "panic", r)
		}
	}()
	fn()
}
