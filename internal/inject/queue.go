// Package inject hands values from producer goroutines to a single consumer loop.
//
// Producers (the sketch driver's reader and reaper, the OSC listener) call Push,
// which never blocks. The consumer loop is the only reader of C. Values arrive in
// the order they were pushed. The backlog is unbounded.
package inject

import "sync"

// Queue is an unbounded FIFO with a channel on the read side.
type Queue[T any] struct {
	mu      sync.Mutex
	pending []T
	closed  bool
	wake    chan struct{}
	out     chan T
	done    chan struct{}
}

// New creates a queue and starts its pump goroutine.
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		wake: make(chan struct{}, 1),
		out:  make(chan T),
		done: make(chan struct{}),
	}
	go q.pump()
	return q
}

// Push appends v. It never blocks. Pushing after Close is a no-op.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, v)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// C returns the channel the consumer reads from. It is closed after Close once
// the pump exits; values still pending at Close are discarded.
func (q *Queue[T]) C() <-chan T {
	return q.out
}

// Len reports how many values are waiting to be delivered.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops the pump and closes C.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.pending = nil
	q.mu.Unlock()
	close(q.done)
}

func (q *Queue[T]) pump() {
	defer close(q.out)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			select {
			case <-q.wake:
				continue
			case <-q.done:
				return
			}
		}
		next := q.pending[0]
		var zero T
		q.pending[0] = zero
		q.pending = q.pending[1:]
		q.mu.Unlock()

		select {
		case q.out <- next:
		case <-q.done:
			return
		}
	}
}
