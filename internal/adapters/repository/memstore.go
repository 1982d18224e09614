package repository

import (
	"context"
	"sync"

	"github.com/okhani/dav/internal/domain/model"
	"github.com/okhani/dav/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultRecentSize = 256
)

// MemStore is an in-memory Store keeping aggregate counters and a
// bounded ring of the most recent changes.
type MemStore struct {
	mu          sync.RWMutex
	total       int64
	byOp        map[model.Op]int64
	byPrincipal map[string]int64

	// recent is a fixed-size ring; head points at the next write slot.
	recent []model.Change
	head   int
	filled bool
}

// NewMemStore creates an in-memory activity store.
func NewMemStore(opts ...StoreOption) *MemStore {
	s := &MemStore{
		byOp:        make(map[model.Op]int64),
		byPrincipal: make(map[string]int64),
		recent:      make([]model.Change, defaultRecentSize),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Record folds a single change into the activity state.
func (s *MemStore) Record(_ context.Context, c model.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.byOp[c.Op]++
	s.byPrincipal[c.Principal]++

	s.recent[s.head] = c
	s.head++
	if s.head == len(s.recent) {
		s.head = 0
		s.filled = true
	}

	metrics.RecordJournalChange(string(c.Op))
	return nil
}

// Snapshot returns a copy of the aggregate counters.
func (s *MemStore) Snapshot(_ context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Total:       s.total,
		ByOp:        make(map[model.Op]int64, len(s.byOp)),
		ByPrincipal: make(map[string]int64, len(s.byPrincipal)),
	}
	for op, n := range s.byOp {
		st.ByOp[op] = n
	}
	for p, n := range s.byPrincipal {
		st.ByPrincipal[p] = n
	}
	return st
}

// Recent returns up to n most recent changes, newest first.
func (s *MemStore) Recent(_ context.Context, n int) []model.Change {
	if n <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.head
	if s.filled {
		size = len(s.recent)
	}
	if n > size {
		n = size
	}

	out := make([]model.Change, 0, n)
	idx := s.head
	for i := 0; i < n; i++ {
		idx--
		if idx < 0 {
			idx = len(s.recent) - 1
		}
		out = append(out, s.recent[idx])
	}
	return out
}

// Count returns the number of changes recorded since startup.
func (s *MemStore) Count(_ context.Context) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}
