package store

import (
	"sync"

	"github.com/roach88/framepipe/internal/pipeline"
)

// eventQueue is an unbounded, thread-safe FIFO of pipeline events.
//
// Unbounded so that Emit, which runs under pipeline stage locks, never
// blocks on the database. The signal channel (buffered, size 1) coalesces
// wakeups and is closed by Close to release the consumer.
type eventQueue struct {
	mu     sync.Mutex
	events []pipeline.Event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]pipeline.Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds e to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e pipeline.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (pipeline.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return pipeline.Event{}, false
	}
	e := q.events[0]

	// Release the slot so the snapshots it holds can be collected.
	q.events[0] = pipeline.Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available. It is
// closed once the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// drained reports whether the queue is closed and empty.
func (q *eventQueue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

// Close stops further enqueues and wakes the consumer.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
