package locks

import "errors"

// Sentinel kinds for lock errors.
var (
	ErrLocked     = errors.New("resource is locked")
	ErrNoSuchLock = errors.New("no such lock")
	ErrForbidden  = errors.New("lock not owned by principal")
)
