// Package service assembles the storage backend, lock table, and change
// journal behind the interfaces the HTTP adapters depend on.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okhani/dav/internal/adapters/fs"
	"github.com/okhani/dav/internal/adapters/locks"
	"github.com/okhani/dav/internal/adapters/mq/queue"
	workerpool "github.com/okhani/dav/internal/adapters/mq/worker"
	"github.com/okhani/dav/internal/adapters/repository"
	"github.com/okhani/dav/internal/domain/model"
	"github.com/okhani/dav/pkg/logger"
)

// Service wires the storage, locking, and journaling components together.
type Service struct {
	mu sync.RWMutex

	// Core components
	fileSystem fs.FileSystem
	lockSystem locks.System
	journal    queue.Queue
	activity   repository.Store
	pool       *workerpool.Pool

	// Configuration
	backend        string
	osRoot         string
	hideSymlinks   bool
	locksEnabled   bool
	maxLockTimeout time.Duration
	journalSize    int
	workerCount    int
	recentSize     int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithOSRoot serves the given directory instead of an in-memory tree.
func WithOSRoot(root string) Option {
	return func(s *Service) {
		if root != "" {
			s.backend = "os"
			s.osRoot = root
		}
	}
}

// WithHideSymlinks controls whether the os backend follows symlinks.
func WithHideSymlinks(hide bool) Option {
	return func(s *Service) {
		s.hideSymlinks = hide
	}
}

// WithLocksEnabled turns the lock table on or off.
func WithLocksEnabled(enabled bool) Option {
	return func(s *Service) {
		s.locksEnabled = enabled
	}
}

// WithMaxLockTimeout caps client-requested lock timeouts.
func WithMaxLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxLockTimeout = d
		}
	}
}

// WithJournalSize sets the maximum size of the change journal.
func WithJournalSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.journalSize = size
		}
	}
}

// WithWorkerCount sets the number of journal worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithRecentChanges sets how many recent changes the activity store keeps.
func WithRecentChanges(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentSize = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backend:        "memory",
		hideSymlinks:   true,
		locksEnabled:   true,
		maxLockTimeout: 24 * time.Hour,
		journalSize:    10_000,
		recentSize:     256,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	switch s.backend {
	case "os":
		var osOpts []fs.OSOption
		if !s.hideSymlinks {
			osOpts = append(osOpts, fs.WithSymlinksVisible())
		}
		osfs, err := fs.NewOSFS(s.osRoot, osOpts...)
		if err != nil {
			return fmt.Errorf("opening root %q: %w", s.osRoot, err)
		}
		s.fileSystem = osfs
		s.logger.Info(ctx, "serving directory", logger.String("root", s.osRoot))
	default:
		s.fileSystem = fs.NewMemFS()
		s.logger.Info(ctx, "serving in-memory tree")
	}

	if s.locksEnabled {
		s.lockSystem = locks.NewMemLS(locks.WithMaxTimeout(s.maxLockTimeout))
	}

	s.journal = queue.NewInMemoryQueue(queue.WithCapacity(s.journalSize))
	s.activity = repository.NewMemStore(repository.WithRecentSize(s.recentSize))
	s.pool = workerpool.NewPool(s.workerCount, s.journal, s.activity)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.String("backend", s.backend),
		logger.Bool("locks", s.locksEnabled),
		logger.Int("journalSize", s.journalSize),
	)

	return nil
}

// Stop gracefully shuts down the service, draining the journal.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	if s.lockSystem != nil {
		_ = s.lockSystem.Close()
	}

	s.started = false
	s.logger.Info(ctx, "service stopped")
}

// FS returns the storage backend.
func (s *Service) FS() fs.FileSystem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fileSystem
}

// Locks returns the lock table, or nil when locking is disabled.
func (s *Service) Locks() locks.System {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lockSystem
}

// Record submits a change to the journal. Changes are dropped rather
// than blocking the request path when the journal is full.
func (s *Service) Record(ctx context.Context, c model.Change) bool {
	s.mu.RLock()
	journal := s.journal
	s.mu.RUnlock()

	if journal == nil {
		return false
	}
	if c.TS.IsZero() {
		c.TS = time.Now()
	}
	return journal.Enqueue(ctx, c)
}

// RecentChanges returns up to n most recent changes, newest first.
func (s *Service) RecentChanges(ctx context.Context, n int) []model.Change {
	s.mu.RLock()
	activity := s.activity
	s.mu.RUnlock()

	if activity == nil {
		return nil
	}
	return activity.Recent(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"backend": s.backend,
		"locks":   s.locksEnabled,
	}

	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats["journalDepth"] = s.journal.Len(ctx)
	stats["changesTotal"] = s.activity.Count(ctx)

	snapshot := s.activity.Snapshot(ctx)
	byOp := make(map[string]int64, len(snapshot.ByOp))
	for op, n := range snapshot.ByOp {
		byOp[string(op)] = n
	}
	stats["changesByOp"] = byOp

	if sizer, ok := s.fileSystem.(fs.Sizer); ok {
		nodes, bytes := sizer.TreeSize(ctx)
		stats["fsNodes"] = nodes
		stats["fsBytes"] = bytes
	}

	return stats
}
