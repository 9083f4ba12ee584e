// Package bus is the single ingress queue for the engine. Every event,
// live or replayed, enters here and is stamped with an arrival sequence
// number before the dispatcher sees it.
package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"main/internal/schema"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Event is the unit passed through the in-memory bus.
type Event struct {
	Header  schema.EventHeader
	Payload []byte
}

// Queue is a bounded event queue. TryPublish never blocks, so live feed
// and broker callbacks cannot stall on a slow consumer; Publish blocks
// and serves the replay path, which must not drop events.
//
// Publishers hold a read lock across the closed check and the send, and
// Close takes the write lock before closing the channel, so a send can
// never race the close. Close waits for in-flight publishes to return.
type Queue struct {
	mu     sync.RWMutex
	ch     chan Event
	seq    uint64
	closed bool
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// TryPublish stamps the event with the next arrival sequence and enqueues
// it without blocking. A full queue drops the event with ErrQueueFull.
func (q *Queue) TryPublish(e Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	e.Header.Seq = atomic.AddUint64(&q.seq, 1)
	select {
	case q.ch <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Publish stamps and enqueues the event, waiting for capacity. Used by
// replay, where backpressure is correct and loss is not.
func (q *Queue) Publish(ctx context.Context, e Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	e.Header.Seq = atomic.AddUint64(&q.seq, 1)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- e:
		return nil
	}
}

// Close stops the queue from accepting new events. Events already queued
// still drain.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Run consumes events in arrival order until the context is done or the
// queue closes and drains.
func (q *Queue) Run(ctx context.Context, handler func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-q.ch:
			if !ok {
				return
			}
			handler(e)
		}
	}
}
