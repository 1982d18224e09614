// Package queue provides the bounded in-memory journal that buffers
// filesystem change events between the request path and the workers
// that fold them into activity stats.
package queue

import (
	"context"
	"sync"

	"github.com/okhani/dav/internal/domain/model"
	"github.com/okhani/dav/pkg/metrics"
)

// Default journal configuration constants.
const (
	defaultCapacity = 10000
)

// Change is the payload type flowing through the journal.
type Change = model.Change

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a change to the journal.
	// Returns false if the journal is full and the change was dropped.
	Enqueue(ctx context.Context, c Change) bool

	// Dequeue returns a channel that receives changes as they become
	// available. The channel is closed when the journal is closed.
	Dequeue(ctx context.Context) <-chan Change

	// Len returns the current number of buffered changes.
	Len(ctx context.Context) int

	// Close shuts down the journal. After closing, no new changes can
	// be enqueued and the dequeue channel is closed.
	Close() error

	// IsClosed reports whether the journal has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	changes  chan Change
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory journal with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.changes = make(chan Change, q.capacity)

	metrics.UpdateJournalCapacity(q.capacity)
	metrics.UpdateJournalDepth(0)

	return q
}

// Enqueue adds a change to the journal. Writers never block on a full
// journal; the change is dropped and counted instead.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Change) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordJournalDropped()
		return false
	}

	select {
	case q.changes <- c:
		metrics.UpdateJournalDepth(len(q.changes))
		return true
	case <-ctx.Done():
		metrics.RecordJournalDropped()
		return false
	default:
		metrics.RecordJournalDropped()
		return false
	}
}

// Dequeue returns a channel that receives changes as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Change {
	out := make(chan Change)
	go func() {
		defer close(out)
		for c := range q.changes {
			select {
			case out <- c:
				metrics.UpdateJournalDepth(len(q.changes))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of buffered changes.
func (q *InMemoryQueue) Len(_ context.Context) int {
	depth := len(q.changes)
	metrics.UpdateJournalDepth(depth)
	return depth
}

// Close shuts down the journal.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.changes)
	q.closed = true

	return nil
}

// IsClosed reports whether the journal has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
