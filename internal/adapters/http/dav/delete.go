package dav

import (
	"net/http"

	"github.com/okhani/dav/internal/domain/davpath"
	"github.com/okhani/dav/internal/domain/model"
)

// handleDelete removes a resource or a whole collection. DELETE is always
// depth infinity per RFC 4918 9.6.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, path *davpath.Path) error {
	ctx := r.Context()

	if depth := r.Header.Get("Depth"); depth != "" && depth != "infinity" {
		return statusError(http.StatusBadRequest)
	}

	meta, err := h.statMaybe(ctx, path)
	if err != nil {
		return err
	}

	tokens, err := h.evalConditions(r, path, meta)
	if err != nil {
		return err
	}
	if meta == nil {
		return statusError(http.StatusNotFound)
	}
	if path.IsCollection() && !meta.Dir {
		return statusError(http.StatusNotFound)
	}
	if err := h.checkLocks(ctx, path, true, tokens); err != nil {
		return err
	}

	if err := h.fs.RemoveAll(ctx, path.FSPath()); err != nil {
		return err
	}
	if h.ls != nil {
		h.ls.Clear(ctx, path.FSPath())
	}

	h.record(ctx, model.Change{Op: model.OpDelete, Path: path.FSPath()})

	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusNoContent)
	return nil
}
