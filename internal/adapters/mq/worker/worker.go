// Package worker drains the change journal and folds changes into the
// activity store in the background, off the request path.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okhani/dav/internal/domain/model"
	"github.com/okhani/dav/pkg/logger"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 4
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Change abstracts what workers read off the journal.
type Change = model.Change

// Recorder folds a change into persistent activity state.
type Recorder interface {
	Record(ctx context.Context, c Change) error
}

// Queue defines how workers receive changes.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Change
}

// Worker processes journal changes using the provided Recorder.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// JournalWorker implements Worker for processing changes.
type JournalWorker struct {
	queue    Queue
	recorder Recorder
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewJournalWorker creates a new worker with configuration options.
func NewJournalWorker(queue Queue, recorder Recorder, opts ...Option) *JournalWorker {
	w := &JournalWorker{
		queue:    queue,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("journal"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *JournalWorker) Run(ctx context.Context) {
	defer close(w.done)

	changes := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if err := w.recorder.Record(ctx, c); err != nil {
				w.logger.Error(ctx, "recording change failed",
					logger.String("op", string(c.Op)),
					logger.String("path", c.Path),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *JournalWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple workers draining the same journal.
type Pool struct {
	workers []*JournalWorker
	queue   Queue

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count picks a
// default based on the CPU count.
func NewPool(workerCount int, queue Queue, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
		if workerCount > defaultWorkerCount {
			workerCount = defaultWorkerCount
		}
	}

	pool := &Pool{
		workers:  make([]*JournalWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("journal-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewJournalWorker(
			queue,
			recorder,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers without draining the journal.
func (p *Pool) Stop() {
	close(p.shutdown)

	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the journal and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing journal", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
