// Package repository defines the change activity store interface and errors.
package repository

import (
	"context"

	"github.com/okhani/dav/internal/domain/model"
)

// Stats summarizes the change activity observed by the server.
type Stats struct {
	// Total is the number of changes recorded since startup.
	Total int64
	// ByOp breaks the total down per operation.
	ByOp map[model.Op]int64
	// ByPrincipal breaks the total down per authenticated principal.
	// Anonymous changes are grouped under the empty key.
	ByPrincipal map[string]int64
}

// Store accumulates filesystem changes into queryable activity state.
type Store interface {
	// Record folds a single change into the activity state.
	// Implementations with a shutdown state return ErrClosed afterwards.
	Record(ctx context.Context, c model.Change) error

	// Snapshot returns a copy of the aggregate counters.
	Snapshot(ctx context.Context) Stats

	// Recent returns up to n most recent changes, newest first.
	Recent(ctx context.Context, n int) []model.Change

	// Count returns the number of changes recorded since startup.
	Count(ctx context.Context) int64
}
