package dav

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okhani/dav/internal/adapters/fs"
	"github.com/okhani/dav/internal/adapters/locks"
	"github.com/okhani/dav/internal/domain/davpath"
)

// StatusError carries the HTTP status a handler decided on. Close marks
// errors after which the connection can no longer be reused, e.g. a
// refused body that was never drained.
type StatusError struct {
	Code  int
	Close bool
	Body  []byte // optional XML error body
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
}

// statusError builds a plain status error.
func statusError(code int) *StatusError {
	return &StatusError{Code: code}
}

// statusErrorClose builds a status error that closes the connection.
func statusErrorClose(code int) *StatusError {
	return &StatusError{Code: code, Close: true}
}

// preconditionError builds a status error with a DAV:error body naming
// the failed precondition.
func preconditionError(code int, body []byte) *StatusError {
	return &StatusError{Code: code, Body: body}
}

// statusForError translates backend and parser errors to a status error.
func statusForError(err error) *StatusError {
	var se *StatusError
	if errors.As(err, &se) {
		return se
	}

	switch {
	case errors.Is(err, fs.ErrNotFound):
		return statusError(http.StatusNotFound)
	case errors.Is(err, fs.ErrParentNotFound):
		return statusError(http.StatusConflict)
	case errors.Is(err, fs.ErrNotDir):
		return statusError(http.StatusConflict)
	case errors.Is(err, fs.ErrExists):
		return statusError(http.StatusMethodNotAllowed)
	case errors.Is(err, fs.ErrIsDir):
		return statusError(http.StatusMethodNotAllowed)
	case errors.Is(err, fs.ErrForbidden):
		return statusError(http.StatusForbidden)
	case errors.Is(err, locks.ErrLocked):
		return statusError(http.StatusLocked)
	case errors.Is(err, locks.ErrNoSuchLock):
		return statusError(http.StatusConflict)
	case errors.Is(err, locks.ErrForbidden):
		return statusError(http.StatusForbidden)
	case errors.Is(err, davpath.ErrInvalidPath):
		return statusError(http.StatusBadRequest)
	case errors.Is(err, davpath.ErrPrefixMismatch):
		return statusError(http.StatusNotFound)
	default:
		return statusError(http.StatusInternalServerError)
	}
}
