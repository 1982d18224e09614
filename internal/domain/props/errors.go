package props

import "errors"

// Sentinel kinds for property errors.
var (
	ErrMalformedBody = errors.New("malformed XML body")
	ErrNotPropupdate = errors.New("body is not a propertyupdate element")
)
