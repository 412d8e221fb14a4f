package queue

import (
	"context"
)

// Queue is a bounded FIFO of opaque byte payloads with drop-oldest overflow.
//
// Put never blocks: when the queue is full, the oldest payload is evicted to
// admit the new one. Get blocks until a payload is available or the context
// is cancelled. The single-producer/single-consumer contract is what makes
// the evict-then-admit sequence in Put safe.
type Queue struct {
	ch chan []byte
}

// New creates a Queue holding at most capacity payloads. A capacity below 1
// is treated as 1.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan []byte, capacity)}
}

// Put admits data, evicting the oldest payload first when the queue is full.
// It reports whether an eviction happened so callers can log which capacity
// setting to raise.
func (q *Queue) Put(data []byte) (evicted bool) {
	for {
		select {
		case q.ch <- data:
			return evicted
		default:
		}
		select {
		case <-q.ch:
			evicted = true
		default:
		}
	}
}

// Get removes and returns the oldest payload, blocking until one is
// available or ctx is cancelled.
func (q *Queue) Get(ctx context.Context) ([]byte, error) {
	select {
	case data := <-q.ch:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryGet removes and returns the oldest payload without blocking.
func (q *Queue) TryGet() ([]byte, bool) {
	select {
	case data := <-q.ch:
		return data, true
	default:
		return nil, false
	}
}

// Len returns the number of payloads currently queued.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the configured capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
