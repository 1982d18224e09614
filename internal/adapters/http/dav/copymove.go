package dav

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/okhani/dav/internal/domain/davpath"
	"github.com/okhani/dav/internal/domain/model"
	"github.com/okhani/dav/internal/domain/props"
)

// handleCopyMove implements COPY and MOVE per RFC 4918 9.8 and 9.9.
func (h *Handler) handleCopyMove(w http.ResponseWriter, r *http.Request, path *davpath.Path, method string) error {
	ctx := r.Context()

	dest, err := h.parseDestination(r)
	if err != nil {
		return err
	}

	depth := r.Header.Get("Depth")
	switch method {
	case "COPY":
		if depth != "" && depth != "0" && depth != "infinity" {
			return statusError(http.StatusBadRequest)
		}
	case "MOVE":
		// MOVE is always depth infinity.
		if depth != "" && depth != "infinity" {
			return statusError(http.StatusBadRequest)
		}
	}

	overwrite := true
	switch r.Header.Get("Overwrite") {
	case "", "T":
	case "F":
		overwrite = false
	default:
		return statusError(http.StatusBadRequest)
	}

	srcMeta, err := h.statMaybe(ctx, path)
	if err != nil {
		return err
	}

	tokens, err := h.evalConditions(r, path, srcMeta)
	if err != nil {
		return err
	}
	if srcMeta == nil {
		return statusError(http.StatusNotFound)
	}

	if path.FSPath() == dest.FSPath() {
		return statusError(http.StatusForbidden)
	}
	if path.IsAncestorOf(dest) || dest.IsAncestorOf(path) {
		return statusError(http.StatusForbidden)
	}

	if method == "MOVE" {
		if err := h.checkLocks(ctx, path, true, tokens); err != nil {
			return err
		}
	}
	if err := h.checkLocks(ctx, dest, true, tokens); err != nil {
		return err
	}

	destMeta, err := h.statMaybe(ctx, dest)
	if err != nil {
		return err
	}
	if destMeta != nil && !overwrite {
		return statusError(http.StatusPreconditionFailed)
	}
	if !h.hasParent(ctx, dest) {
		return statusError(http.StatusConflict)
	}

	if destMeta != nil {
		if err := h.fs.RemoveAll(ctx, dest.FSPath()); err != nil {
			return err
		}
		if h.ls != nil {
			h.ls.Clear(ctx, dest.FSPath())
		}
	}

	if method == "MOVE" {
		if err := h.fs.Rename(ctx, path.FSPath(), dest.FSPath()); err != nil {
			return err
		}
		if h.ls != nil {
			h.ls.Move(ctx, path.FSPath(), dest.FSPath())
		}
		h.record(ctx, model.Change{Op: model.OpMove, Path: path.FSPath(), Destination: dest.FSPath()})
	} else {
		shallow := depth == "0"
		if err := h.copyTree(ctx, path.FSPath(), dest.FSPath(), srcMeta.Dir, shallow); err != nil {
			return err
		}
		h.record(ctx, model.Change{Op: model.OpCopy, Path: path.FSPath(), Destination: dest.FSPath()})
	}

	status := http.StatusCreated
	if destMeta != nil {
		status = http.StatusNoContent
	}
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(status)
	return nil
}

// parseDestination resolves the Destination header against the handler's
// prefix. Destinations outside this server map to 502 per RFC 4918 9.8.3.
func (h *Handler) parseDestination(r *http.Request) (*davpath.Path, error) {
	raw := r.Header.Get("Destination")
	if raw == "" {
		return nil, statusError(http.StatusBadRequest)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, statusError(http.StatusBadRequest)
	}
	if u.Host != "" && r.Host != "" && u.Host != r.Host {
		return nil, statusError(http.StatusBadGateway)
	}
	dest, err := davpath.Parse(u.EscapedPath(), h.prefix)
	if err != nil {
		return nil, statusError(http.StatusBadGateway)
	}
	return dest, nil
}

// copyTree duplicates a resource including its dead properties. shallow
// copies a collection without its members (Depth: 0).
func (h *Handler) copyTree(ctx context.Context, src, dst string, dir, shallow bool) error {
	if dir {
		if err := h.fs.Mkdir(ctx, dst); err != nil {
			return err
		}
		if err := h.copyDeadProps(ctx, src, dst); err != nil {
			return err
		}
		if shallow {
			return nil
		}
		entries, err := h.fs.ReadDir(ctx, src)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := h.copyTree(ctx, join(src, e.Name), join(dst, e.Name), e.Meta.Dir, false); err != nil {
				return err
			}
		}
		return nil
	}

	in, err := h.fs.Open(ctx, src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := h.fs.Create(ctx, dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return h.copyDeadProps(ctx, src, dst)
}

func (h *Handler) copyDeadProps(ctx context.Context, src, dst string) error {
	dead, err := h.fs.DeadProps(ctx, src)
	if err != nil || len(dead) == 0 {
		return err
	}
	return h.fs.PatchDeadProps(ctx, dst, []props.Patch{{Props: dead}})
}

func join(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
