// Package locks defines the WebDAV lock system contract and its in-memory
// implementation.
package locks

import (
	"context"
	"time"
)

// Scope is a lock scope per RFC 4918.
type Scope int

// Lock scopes.
const (
	Exclusive Scope = iota
	Shared
)

// Lock is one live lock.
type Lock struct {
	Token     string // urn:uuid:... state token
	Path      string // decoded path, no trailing slash
	Principal string // owner principal, "" when anonymous
	Scope     Scope
	Infinite  bool // Depth: infinity
	OwnerXML  string
	Duration  time.Duration // granted timeout
	NoExpiry  bool          // Timeout: Infinite
	Expires   time.Time     // zero when NoExpiry
}

// Request carries the parameters of a LOCK request.
type Request struct {
	Path      string
	Principal string
	Scope     Scope
	Infinite  bool
	OwnerXML  string
	Duration  time.Duration
	NoExpiry  bool
}

// System provides lock storage and conflict checks.
type System interface {
	// Lock grants a new lock or returns ErrLocked on conflict.
	Lock(ctx context.Context, req Request) (Lock, error)

	// Refresh extends the lock identified by token covering path.
	Refresh(ctx context.Context, path, token string, duration time.Duration, noExpiry bool) (Lock, error)

	// Unlock removes the lock with token. ErrNoSuchLock when the token is
	// unknown or does not cover path; ErrForbidden on a principal mismatch.
	Unlock(ctx context.Context, path, token, principal string) error

	// Check verifies the request may touch path: every live lock covering
	// it (and, for deep operations, its subtree) must have its token
	// submitted by the owning principal. Returns ErrLocked otherwise.
	Check(ctx context.Context, path, principal string, deep bool, submitted []string) error

	// Discover returns the live locks covering path, for lockdiscovery.
	Discover(ctx context.Context, path string) []Lock

	// Move rebinds locks rooted at oldPath to newPath after a MOVE.
	Move(ctx context.Context, oldPath, newPath string)

	// Clear drops locks on path and below after a DELETE.
	Clear(ctx context.Context, path string)

	// Close stops the janitor.
	Close() error
}
