package capture

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Send once the receiving side is gone.
var ErrQueueClosed = errors.New("queue closed")

// Queue is an unbounded FIFO connecting one sender to one receiver.
// Send never blocks; Drain takes whatever is queued and returns at once.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Send appends v. It fails only after the receiver called Close.
func (q *Queue[T]) Send(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, v)
	return nil
}

// Drain removes and returns all queued items in arrival order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the receiver as gone and discards pending items.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}

// Closed reports whether Close was called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
