// Package queue buffers capture events between the HTTP surface and the
// dispatcher.
//
// The queue is a bounded channel: enqueue never blocks the caller, and a
// full queue is reported back so the surface can shed load.
package queue

import (
	"context"
	"sync"

	"github.com/seluk/margo/internal/domain/model"
	"github.com/seluk/margo/pkg/metrics"
)

// defaultCapacity bounds the in-flight event window.
const defaultCapacity = 65536

// Event is the payload type flowing through the queue.
type Event = model.CaptureEvent

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event to the queue.
	// Returns false if the queue is full or closed and the event was
	// not enqueued.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns a channel that receives events as they become
	// available. The channel closes once the queue is closed and
	// drained, or when ctx is cancelled.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of queued events.
	Len(ctx context.Context) int

	// Close shuts down the queue. No new events can be enqueued;
	// dequeue channels drain what remains and then close.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// MemoryQueue implements Queue with a buffered channel.
type MemoryQueue struct {
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates a new in-memory queue with configuration options.
func NewMemoryQueue(opts ...Option) *MemoryQueue {
	q := &MemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}

	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds an event to the queue without blocking.
func (q *MemoryQueue) Enqueue(ctx context.Context, e Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		q.publishGauges()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives events as they become available.
func (q *MemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for event := range q.events {
			select {
			case out <- event:
				metrics.RecordQueueDequeue()
				q.publishGauges()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued events.
func (q *MemoryQueue) Len(ctx context.Context) int {
	size := len(q.events)
	q.publishGauges()
	return size
}

// Close shuts down the queue. Closing twice is a no-op.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *MemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *MemoryQueue) publishGauges() {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
