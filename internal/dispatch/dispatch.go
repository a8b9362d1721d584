// Package dispatch provides the single logical thread every store and
// controller is confined to. Trigger methods are called on it, and backend
// completions are posted back onto it, so a store's own operations never
// interleave.
package dispatch

import (
	"context"
	"sync"
)

// Executor runs posted functions one at a time in FIFO order.
type Executor interface {
	Post(fn func())
}

// Queue is an unbounded FIFO Executor. Whoever calls Step, RunPending or Run
// becomes the logical thread; only one goroutine may drive a Queue.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Post enqueues fn. It never blocks, so it is safe to call from the driving
// goroutine itself.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) pop() func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	fn := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return fn
}

// Len returns the number of queued functions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Step runs exactly one queued function, waiting for one to be posted if the
// queue is empty.
func (q *Queue) Step(ctx context.Context) error {
	for {
		if fn := q.pop(); fn != nil {
			fn()
			return nil
		}
		select {
		case <-q.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunPending runs everything queued right now without waiting and returns
// how many functions ran.
func (q *Queue) RunPending() int {
	n := 0
	for {
		fn := q.pop()
		if fn == nil {
			return n
		}
		fn()
		n++
	}
}

// Run drives the queue until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		if err := q.Step(ctx); err != nil {
			return err
		}
	}
}

// Go runs call off the logical thread and posts done, with its result, back
// onto exec.
func Go[R any](ctx context.Context, exec Executor, call func(context.Context) (R, error), done func(R, error)) {
	go func() {
		result, err := call(ctx)
		exec.Post(func() { done(result, err) })
	}()
}
