package davpath

import "errors"

// Sentinel kinds for path errors.
var (
	ErrInvalidPath    = errors.New("invalid request path")
	ErrPrefixMismatch = errors.New("path outside configured prefix")
)
