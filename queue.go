package trafficlight

import (
	"context"
	"sync"
)

// TransferQueue is an unbounded FIFO that hands values from producers to
// blocked consumers. Each value is delivered to exactly one receiver.
//
// Once Send accepts a value the queue owns it; the slot is cleared on removal
// so the queue holds no reference after Receive returns.
type TransferQueue[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []T
}

// NewTransferQueue returns an empty queue.
func NewTransferQueue[T any]() *TransferQueue[T] {
	q := &TransferQueue[T]{
		items: make([]T, 0),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send appends v to the tail and wakes one waiting receiver. It never blocks.
func (q *TransferQueue[T]) Send(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.cond.Signal()
}

// Receive blocks until a value is available and returns the oldest one.
func (q *TransferQueue[T]) Receive() T {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	return q.pop()
}

// ReceiveContext is Receive with cancellation. A value that is available on
// wake-up is always taken before ctx is checked.
func (q *TransferQueue[T]) ReceiveContext(ctx context.Context) (T, error) {
	q.mu.Lock()
	if len(q.items) > 0 {
		v := q.pop()
		q.mu.Unlock()
		return v, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			q.mu.Unlock()
			var zero T
			return zero, err
		}
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				q.cond.Broadcast()
				q.mu.Unlock()
			case <-done:
			}
		}()

		q.cond.Wait()
		close(done)

		if len(q.items) > 0 {
			v := q.pop()
			q.mu.Unlock()
			return v, nil
		}
	}
}

// Len returns the number of queued values.
func (q *TransferQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// pop must be called with q.mu held and q.items non-empty.
func (q *TransferQueue[T]) pop() T {
	var zero T
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v
}
