package loop

import (
	"context"
	"sync"
	"time"
)

// Stopper cancels a pending timer. Stop reports whether the timer was
// still pending.
type Stopper interface {
	Stop() bool
}

// Clock is the time source for every deferred action in the viewer.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

// Poster hands a function to the single goroutine that owns viewer state.
type Poster interface {
	Post(fn func())
}

type realClock struct{}

func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Queue is a FIFO of posted functions. Any goroutine may Post; only the
// owning goroutine runs Drain.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	ready   chan struct{}
}

func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled after a Post; a single signal may cover many posts.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain runs queued functions, including ones posted while draining, and
// returns how many ran.
func (q *Queue) Drain() int {
	ran := 0
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()
		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			fn()
			ran++
		}
	}
}

// Wait blocks until something is posted or ctx ends.
func (q *Queue) Wait(ctx context.Context) error {
	if q.Len() > 0 {
		return nil
	}
	select {
	case <-q.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	for {
		if err := q.Wait(ctx); err != nil {
			return err
		}
		q.Drain()
	}
}
