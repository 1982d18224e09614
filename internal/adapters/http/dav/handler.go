// Package dav implements the WebDAV (RFC 4918) handler: method dispatch,
// conditional request evaluation, and the per-method semantics on top of
// a filesystem backend and an optional lock system.
package dav

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/okhani/dav/internal/adapters/fs"
	"github.com/okhani/dav/internal/adapters/locks"
	"github.com/okhani/dav/internal/domain/davpath"
	"github.com/okhani/dav/internal/domain/model"
	"github.com/okhani/dav/pkg/logger"
)

// maxBodySize caps the pre-read request body for every method except PUT.
const maxBodySize = 65536

// Journal receives a change notification after every mutating method.
type Journal interface {
	Record(ctx context.Context, c model.Change) bool
}

// Handler serves a WebDAV tree. Configure it with functional options and
// mount it on any mux; it implements http.Handler.
type Handler struct {
	prefix        string
	fs            fs.FileSystem
	ls            locks.System
	allowed       map[string]bool
	infiniteDepth bool
	journal       Journal
	logger        logger.Logger
}

// Option applies a configuration option to the Handler.
type Option func(*Handler)

// WithPrefix strips the given URL prefix from request paths.
func WithPrefix(prefix string) Option {
	return func(h *Handler) {
		h.prefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithLockSystem enables LOCK/UNLOCK with the given lock table.
func WithLockSystem(ls locks.System) Option {
	return func(h *Handler) {
		h.ls = ls
	}
}

// WithAllowedMethods restricts the handler to the given methods. OPTIONS
// is always allowed.
func WithAllowedMethods(methods ...string) Option {
	return func(h *Handler) {
		h.allowed = make(map[string]bool, len(methods)+1)
		h.allowed[http.MethodOptions] = true
		for _, m := range methods {
			h.allowed[strings.ToUpper(m)] = true
		}
	}
}

// WithInfiniteDepth permits PROPFIND requests with Depth: infinity.
func WithInfiniteDepth(allow bool) Option {
	return func(h *Handler) {
		h.infiniteDepth = allow
	}
}

// WithJournal wires a change journal receiving one entry per mutation.
func WithJournal(j Journal) Option {
	return func(h *Handler) {
		h.journal = j
	}
}

// WithLogger sets a custom logger for the handler.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler creates a WebDAV handler over the given backend.
func NewHandler(fsys fs.FileSystem, opts ...Option) *Handler {
	h := &Handler{
		fs:     fsys,
		logger: logger.Get().Named("dav"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// davMethods lists every method the handler understands.
var davMethods = map[string]bool{
	http.MethodOptions: true,
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	"MKCOL":            true,
	"COPY":             true,
	"MOVE":             true,
	"PROPFIND":         true,
	"PROPPATCH":        true,
	"LOCK":             true,
	"UNLOCK":           true,
}

// bodyMethods lists the methods that accept a request body. PUT streams
// its body; the rest get a bounded pre-read.
var bodyMethods = map[string]bool{
	http.MethodPut: true,
	"PROPFIND":     true,
	"PROPPATCH":    true,
	"LOCK":         true,
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mw := &metricsWriter{ResponseWriter: w, status: http.StatusOK}
	start := nowMillis()

	if err := h.serve(mw, r); err != nil {
		h.writeError(mw, r, err)
	}

	recordRequest(r.Method, mw.status, nowMillis()-start)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if lit := r.Header.Get("X-Litmus"); lit != "" {
		h.logger.Debug(ctx, "litmus request",
			logger.String("test", lit),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
		)
	}

	method := strings.ToUpper(r.Method)
	if !davMethods[method] {
		return statusErrorClose(http.StatusMethodNotAllowed)
	}
	if h.allowed != nil && !h.allowed[method] {
		return statusErrorClose(http.StatusMethodNotAllowed)
	}

	path, err := davpath.Parse(r.URL.EscapedPath(), h.prefix)
	if err != nil {
		return err
	}

	// PUT is the only handler that reads the body itself. Everything
	// else gets a bounded pre-read, and methods that take no body at
	// all refuse one.
	var body []byte
	if method != http.MethodPut {
		body, err = readRequestBody(r.Body, maxBodySize)
		if err != nil {
			return err
		}
		if len(body) > 0 && !bodyMethods[method] {
			return statusErrorClose(http.StatusUnsupportedMediaType)
		}
	}

	switch method {
	case http.MethodOptions:
		return h.handleOptions(w, r, path)
	case http.MethodGet, http.MethodHead:
		return h.handleGet(w, r, path)
	case http.MethodPut:
		return h.handlePut(w, r, path)
	case http.MethodDelete:
		return h.handleDelete(w, r, path)
	case "MKCOL":
		return h.handleMkcol(w, r, path)
	case "COPY", "MOVE":
		return h.handleCopyMove(w, r, path, method)
	case "PROPFIND":
		return h.handlePropfind(w, r, path, body)
	case "PROPPATCH":
		return h.handleProppatch(w, r, path, body)
	case "LOCK":
		return h.handleLock(w, r, path, body)
	case "UNLOCK":
		return h.handleUnlock(w, r, path)
	default:
		return statusError(http.StatusMethodNotAllowed)
	}
}

// writeError turns a handler error into an empty-bodied status response.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	se := statusForError(err)

	if se.Code >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}

	// Windows caches 404s case-insensitively for up to a minute, which
	// makes a rename show stale listings. Ask it not to.
	if se.Code == http.StatusNotFound && strings.Contains(r.UserAgent(), "Microsoft") {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		w.Header().Set("Vary", "*")
	}
	if se.Close {
		w.Header().Set("Connection", "close")
	}

	if len(se.Body) > 0 {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(se.Code)
		_, _ = w.Write(se.Body)
		return
	}
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(se.Code)
}

// readRequestBody drains the body up to maxSize. Beyond that the request
// is refused; the connection is closed since the rest was never read.
func readRequestBody(rc io.ReadCloser, maxSize int64) ([]byte, error) {
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
	if err != nil {
		return nil, statusErrorClose(http.StatusBadRequest)
	}
	if int64(len(data)) > maxSize {
		return nil, statusErrorClose(http.StatusRequestEntityTooLarge)
	}
	recordBodySize(len(data))
	return data, nil
}

// hasParent reports whether the parent of path exists and is a collection.
func (h *Handler) hasParent(ctx context.Context, path *davpath.Path) bool {
	meta, err := h.fs.Stat(ctx, path.Parent().FSPath())
	return err == nil && meta.Dir
}

// fixpath adds a Content-Location header when a collection was addressed
// without a trailing slash.
func (h *Handler) fixpath(w http.ResponseWriter, path *davpath.Path, meta fs.Metadata) {
	if meta.Dir && !path.IsCollection() {
		path.AddSlash()
		w.Header().Set("Content-Location", path.EncodedWithPrefix())
	}
}

// record submits a change to the journal, when one is wired.
func (h *Handler) record(ctx context.Context, c model.Change) {
	if h.journal == nil {
		return
	}
	c.Principal = PrincipalFromContext(ctx)
	h.journal.Record(ctx, c)
}

// principalKey is the context key carrying the authenticated principal.
type principalKey struct{}

// ContextWithPrincipal attaches the authenticated principal to ctx.
func ContextWithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the authenticated principal, or "".
func PrincipalFromContext(ctx context.Context) string {
	principal, _ := ctx.Value(principalKey{}).(string)
	return principal
}

// errIsStatus reports whether err maps to the given status code.
func errIsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
