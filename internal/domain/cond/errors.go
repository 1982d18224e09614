package cond

import "errors"

// Sentinel kinds for conditional-header errors.
var (
	ErrBadIfHeader = errors.New("malformed If header")
	ErrBadTimeout  = errors.New("malformed Timeout header")
)
