package repository

import "errors"

// Sentinel kinds for activity store errors.
var (
	ErrClosed = errors.New("activity store closed")
)
