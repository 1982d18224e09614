package fs

import "errors"

// Sentinel kinds for filesystem errors. The DAV layer maps these onto
// RFC 4918 status codes.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrExists         = errors.New("resource already exists")
	ErrParentNotFound = errors.New("parent collection not found")
	ErrNotDir         = errors.New("not a collection")
	ErrIsDir          = errors.New("is a collection")
	ErrForbidden      = errors.New("operation forbidden")
)
