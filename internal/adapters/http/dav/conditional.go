package dav

import (
	"context"
	"net/http"
	"net/url"

	"github.com/okhani/dav/internal/adapters/fs"
	"github.com/okhani/dav/internal/domain/cond"
	"github.com/okhani/dav/internal/domain/davpath"
)

// evalConditions checks the If-Match, If-Unmodified-Since, If-None-Match,
// and If headers against the current state of the resource. It returns
// the state tokens the client submitted, for the lock check that follows.
// meta is nil when the resource is unmapped.
func (h *Handler) evalConditions(r *http.Request, path *davpath.Path, meta *fs.Metadata) ([]string, error) {
	exists := meta != nil
	etag := ""
	if exists {
		etag = meta.ETag
	}

	if !cond.EvalIfMatch(r, etag, exists) {
		return nil, statusError(http.StatusPreconditionFailed)
	}
	if exists && !cond.EvalIfUnmodifiedSince(r, meta.Modified) {
		return nil, statusError(http.StatusPreconditionFailed)
	}
	if !cond.EvalIfNoneMatch(r, etag, exists) {
		return nil, statusError(http.StatusPreconditionFailed)
	}

	ih, err := cond.ParseIf(r.Header.Get("If"))
	if err != nil {
		return nil, statusError(http.StatusBadRequest)
	}
	if !ih.Eval(h.resolver(r.Context(), path, meta)) {
		return nil, statusError(http.StatusPreconditionFailed)
	}

	return ih.StateTokens(), nil
}

// resolver maps If header resource tags to resource state. The empty tag
// resolves to the request URI.
func (h *Handler) resolver(ctx context.Context, path *davpath.Path, meta *fs.Metadata) cond.Resolver {
	return func(tag string) cond.ResourceState {
		target := path
		targetMeta := meta
		if tag != "" {
			parsed, err := h.parseTag(tag)
			if err != nil {
				return cond.ResourceState{}
			}
			target = parsed
			if m, err := h.fs.Stat(ctx, target.FSPath()); err == nil {
				targetMeta = &m
			} else {
				targetMeta = nil
			}
		}

		st := cond.ResourceState{Found: targetMeta != nil}
		if targetMeta != nil {
			st.ETag = targetMeta.ETag
		}
		if h.ls != nil {
			for _, l := range h.ls.Discover(ctx, target.FSPath()) {
				st.Tokens = append(st.Tokens, l.Token)
			}
		}
		return st
	}
}

// parseTag turns an If header resource tag, which may be an absolute URI,
// into a path under the handler's prefix.
func (h *Handler) parseTag(tag string) (*davpath.Path, error) {
	u, err := url.Parse(tag)
	if err != nil {
		return nil, err
	}
	return davpath.Parse(u.EscapedPath(), h.prefix)
}

// checkLocks verifies the request may mutate path given the submitted
// tokens. deep extends the check to the whole subtree.
func (h *Handler) checkLocks(ctx context.Context, path *davpath.Path, deep bool, tokens []string) error {
	if h.ls == nil {
		return nil
	}
	if err := h.ls.Check(ctx, path.FSPath(), PrincipalFromContext(ctx), deep, tokens); err != nil {
		return statusError(http.StatusLocked)
	}
	return nil
}

// statMaybe stats path, mapping absence to a nil metadata pointer.
func (h *Handler) statMaybe(ctx context.Context, path *davpath.Path) (*fs.Metadata, error) {
	meta, err := h.fs.Stat(ctx, path.FSPath())
	if err != nil {
		se := statusForError(err)
		if se.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &meta, nil
}
