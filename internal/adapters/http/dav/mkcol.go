package dav

import (
	"errors"
	"net/http"

	"github.com/okhani/dav/internal/adapters/fs"
	"github.com/okhani/dav/internal/domain/davpath"
	"github.com/okhani/dav/internal/domain/model"
)

// handleMkcol creates a collection. Status codes follow RFC 4918 9.3.1:
// an existing resource is 405, a missing parent 409. Request bodies are
// refused upstream with 415.
func (h *Handler) handleMkcol(w http.ResponseWriter, r *http.Request, path *davpath.Path) error {
	ctx := r.Context()

	meta, err := h.statMaybe(ctx, path)
	if err != nil {
		return err
	}

	tokens, err := h.evalConditions(r, path, meta)
	if err != nil {
		return err
	}
	if err := h.checkLocks(ctx, path, false, tokens); err != nil {
		return err
	}

	if err := h.fs.Mkdir(ctx, path.FSPath()); err != nil {
		switch {
		case errors.Is(err, fs.ErrExists):
			return statusError(http.StatusMethodNotAllowed)
		case errors.Is(err, fs.ErrParentNotFound), errors.Is(err, fs.ErrNotDir):
			return statusError(http.StatusConflict)
		default:
			return err
		}
	}

	if !path.IsCollection() {
		path.AddSlash()
		w.Header().Set("Content-Location", path.EncodedWithPrefix())
	}

	h.record(ctx, model.Change{Op: model.OpMkcol, Path: path.FSPath()})

	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusCreated)
	return nil
}
