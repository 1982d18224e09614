package dav

import (
	"io"
	"net/http"

	"github.com/okhani/dav/internal/domain/davpath"
	"github.com/okhani/dav/internal/domain/model"
)

// handlePut streams the request body into a new or existing file.
func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request, path *davpath.Path) error {
	ctx := r.Context()

	if path.IsCollection() {
		return statusError(http.StatusMethodNotAllowed)
	}
	if r.Header.Get("Content-Range") != "" {
		// Partial writes are not supported.
		return statusErrorClose(http.StatusNotImplemented)
	}

	meta, err := h.statMaybe(ctx, path)
	if err != nil {
		return err
	}
	if meta != nil && meta.Dir {
		return statusError(http.StatusMethodNotAllowed)
	}

	tokens, err := h.evalConditions(r, path, meta)
	if err != nil {
		return err
	}
	if err := h.checkLocks(ctx, path, false, tokens); err != nil {
		return err
	}

	f, err := h.fs.Create(ctx, path.FSPath())
	if err != nil {
		return err
	}

	n, err := io.Copy(f, r.Body)
	if err != nil {
		_ = f.Close()
		return statusErrorClose(http.StatusBadRequest)
	}
	if err := f.Close(); err != nil {
		return err
	}
	recordBodySize(int(n))

	status := http.StatusCreated
	if meta != nil {
		status = http.StatusNoContent
	}

	if fresh, err := h.fs.Stat(ctx, path.FSPath()); err == nil {
		w.Header().Set("ETag", fresh.ETag)
	}

	h.record(ctx, model.Change{Op: model.OpPut, Path: path.FSPath()})

	w.Header().Set("Content-Length", "0")
	w.WriteHeader(status)
	return nil
}
