package probe

import "errors"

// Probe errors.
var (
	// ErrUnknownSuite is returned when a requested suite name does not exist.
	ErrUnknownSuite = errors.New("unknown suite")

	// ErrBadResponse is returned when a response passes the status check but
	// its headers or body are not what a compliant server would produce.
	ErrBadResponse = errors.New("bad response")
)
