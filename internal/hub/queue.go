package hub

import (
	"context"
	"sync"
)

// Sink accepts payloads for a single connection without blocking.
type Sink interface {
	Push(payload []byte) error
}

// Queue is the ordered outbound buffer of one connection. Any number of
// goroutines may Push; a single drain goroutine Pops in FIFO order.
//
// A Queue with limit 0 is unbounded. With a positive limit, Push fails with
// ErrQueueFull once limit payloads are waiting and the payload is dropped.
type Queue struct {
	mu     sync.Mutex
	items  [][]byte
	limit  int
	closed bool
	ready  chan struct{}
}

// NewQueue creates a queue holding at most limit pending payloads, or an
// unbounded one when limit <= 0.
func NewQueue(limit int) *Queue {
	if limit < 0 {
		limit = 0
	}
	return &Queue{
		limit: limit,
		ready: make(chan struct{}, 1),
	}
}

// Push appends payload. It never blocks.
func (q *Queue) Push(payload []byte) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.limit > 0 && len(q.items) >= q.limit {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.items = append(q.items, payload)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Pop removes and returns the oldest payload, waiting until one is available.
// It returns ErrQueueClosed once the queue is closed and ctx.Err() if ctx
// ends first.
func (q *Queue) Pop(ctx context.Context) ([]byte, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		if len(q.items) > 0 {
			payload := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			if len(q.items) == 0 {
				q.items = nil
			}
			q.mu.Unlock()
			return payload, nil
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close drops every pending payload and wakes the drain goroutine. Closing
// twice is a no-op.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	q.signal()
}

// Len returns the number of pending payloads.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
