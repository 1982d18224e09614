package dav

import (
	"fmt"
	"html"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/okhani/dav/internal/domain/cond"
	"github.com/okhani/dav/internal/domain/davpath"
)

// handleGet serves GET and HEAD. Collections get an HTML index, files are
// served with range and conditional support.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, path *davpath.Path) error {
	ctx := r.Context()

	meta, err := h.fs.Stat(ctx, path.FSPath())
	if err != nil {
		return err
	}

	// The If header can make any method conditional.
	ih, err := cond.ParseIf(r.Header.Get("If"))
	if err != nil {
		return statusError(http.StatusBadRequest)
	}
	if !ih.Eval(h.resolver(ctx, path, &meta)) {
		return statusError(http.StatusPreconditionFailed)
	}

	if meta.Dir {
		h.fixpath(w, path, meta)
		return h.serveIndex(w, r, path)
	}
	if path.IsCollection() {
		// A trailing slash on a file is a non-resource.
		return statusError(http.StatusNotFound)
	}

	f, err := h.fs.Open(ctx, path.FSPath())
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if ctype := mime.TypeByExtension(filepath.Ext(meta.Name)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	w.Header().Set("ETag", meta.ETag)

	// ServeContent handles Range, If-Range, If-None-Match, and
	// If-Modified-Since from here.
	http.ServeContent(w, r, meta.Name, meta.Modified, f)
	return nil
}

// serveIndex renders a minimal HTML listing for a collection.
func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request, path *davpath.Path) error {
	entries, err := h.fs.ReadDir(r.Context(), path.FSPath())
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return nil
	}

	title := html.EscapeString(path.String())
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><title>Index of %s</title></head><body>\n", title)
	fmt.Fprintf(w, "<h1>Index of %s</h1>\n<table>\n", title)
	fmt.Fprintf(w, "<tr><th align=\"left\">Name</th><th align=\"right\">Size</th><th align=\"left\">Last modified</th></tr>\n")
	if !path.IsRoot() {
		fmt.Fprintf(w, "<tr><td><a href=\"../\">../</a></td><td></td><td></td></tr>\n")
	}
	for _, e := range entries {
		child := path.Join(e.Name)
		if e.Meta.Dir {
			child.AddSlash()
		}
		name := html.EscapeString(e.Name)
		if e.Meta.Dir {
			name += "/"
		}
		size := ""
		if !e.Meta.Dir {
			size = fmt.Sprintf("%d", e.Meta.Size)
		}
		fmt.Fprintf(w, "<tr><td><a href=\"%s\">%s</a></td><td align=\"right\">%s</td><td>%s</td></tr>\n",
			child.EncodedWithPrefix(), name, size,
			e.Meta.Modified.UTC().Format("2006-01-02 15:04"),
		)
	}
	fmt.Fprintf(w, "</table></body></html>\n")
	return nil
}
