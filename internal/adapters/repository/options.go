package repository

import "github.com/okhani/dav/internal/domain/model"

// StoreOption applies a configuration option to the MemStore.
type StoreOption func(*MemStore)

// WithRecentSize sets how many recent changes the store retains.
func WithRecentSize(n int) StoreOption {
	return func(s *MemStore) {
		if n > 0 {
			s.recent = make([]model.Change, n)
		}
	}
}
