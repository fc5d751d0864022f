package scheduler

import (
	"errors"
	"sync"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// FIFO is the pending-task queue shared by all workers of a pool.
//
// Items leave the queue in the order they were pushed. A capacity of 0 makes the
// queue unbounded. A bounded queue either blocks Push until a slot frees up or
// rejects the item with ErrQueueFull, depending on block.
type FIFO[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []T
	capacity int
	block    bool
	closed   bool
}

// NewFIFO creates a queue. capacity <= 0 means unbounded.
func NewFIFO[T any](capacity int, block bool) *FIFO[T] {
	q := &FIFO[T]{
		capacity: max(capacity, 0),
		block:    block,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push appends v to the tail of the queue.
// Returns ErrQueueClosed once Close has been called, and ErrQueueFull when the
// queue is bounded, full and configured not to block.
func (q *FIFO[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.closed {
			return ErrQueueClosed
		}
		if q.capacity == 0 || len(q.items) < q.capacity {
			break
		}
		if !q.block {
			return ErrQueueFull
		}
		q.notFull.Wait()
	}

	q.items = append(q.items, v)
	q.notEmpty.Signal()
	return nil
}

// Pop removes the head of the queue, blocking while the queue is empty.
// ok is false only when the queue is closed and fully drained.
func (q *FIFO[T]) Pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.closed {
			return v, false
		}
		q.notEmpty.Wait()
	}

	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}

	q.notFull.Signal()
	return v, true
}

// Close stops the queue from accepting items. Items already queued can still be
// popped; blocked producers and idle consumers are woken up.
func (q *FIFO[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Len returns the number of queued items.
func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
