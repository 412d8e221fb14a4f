package dgram

import (
	"context"
	"sync"
)

// event is a level-triggered boolean signal. Wait returns immediately while
// the event is set and blocks while it is clear. It backs the stream's
// "drained" signal: set means the outbound buffer is below its high-water
// mark and writes may proceed.
type event struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

func newEvent(set bool) *event {
	e := &event{ch: make(chan struct{})}
	if set {
		e.set = true
		close(e.ch)
	}
	return e
}

// Set marks the event, releasing all current and future waiters.
func (e *event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		e.set = true
		close(e.ch)
	}
}

// Clear unmarks the event so subsequent Wait calls block.
func (e *event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set {
		e.set = false
		e.ch = make(chan struct{})
	}
}

// IsSet reports the current state.
func (e *event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Wait blocks until the event is set or ctx is cancelled.
func (e *event) Wait(ctx context.Context) error {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
