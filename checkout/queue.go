package checkout

import "sync"

// Queue is an unbounded FIFO guarded by a mutex and a condition variable.
// Enqueue wakes one waiter, Close wakes all of them.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

// NewQueue returns an empty open queue.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)

	return q
}

// Enqueue appends v to the tail and wakes exactly one blocked Dequeue.
func (q *Queue[T]) Enqueue(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.cond.Signal()
}

// Dequeue blocks until an item is available and removes it from the head.
// It returns false, the end-of-work sentinel, once the queue is empty and closed.
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.closed {
			var zero T
			return zero, false
		}
		q.cond.Wait()
	}

	v := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]

	return v, true
}

// Len returns a point-in-time count.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Range calls fn for every queued item from head to tail while holding the lock.
// fn must not call back into the queue.
func (q *Queue[T]) Range(fn func(i int, v T) bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, v := range q.items {
		if !fn(i, v) {
			return
		}
	}
}

// Close marks that no more work will ever arrive and wakes every waiter.
// Items already queued can still be dequeued. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.closed
}
