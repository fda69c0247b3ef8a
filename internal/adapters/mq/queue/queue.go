// Package queue buffers submitted matches between the HTTP intake and the
// workers that record them in the rating period.
package queue

import (
	"context"
	"sync"

	"github.com/okian/glicko/internal/domain/model"
	"github.com/okian/glicko/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10_000
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a match to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, m model.Match) bool

	// Dequeue returns a channel that yields queued matches. It is closed
	// once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan model.Match

	// Len returns the current number of queued matches.
	Len(ctx context.Context) int

	// Close stops accepting matches.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	matches  chan model.Match
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.matches = make(chan model.Match, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds a match to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m model.Match) bool { //nolint:gocritic // hugeParam: Match is sent by value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return false
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError("context_cancelled")
		return false
	default:
	}

	select {
	case q.matches <- m:
		metrics.UpdateQueueSize(len(q.matches))
		return true
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return false
	}
}

// Dequeue returns the channel workers read from.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan model.Match {
	return q.matches
}

// Len returns the current number of queued matches.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.matches)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue. Matches already queued can still be dequeued.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.matches)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
