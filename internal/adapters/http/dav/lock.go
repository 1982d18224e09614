package dav

import (
	"encoding/xml"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okhani/dav/internal/adapters/locks"
	"github.com/okhani/dav/internal/domain/cond"
	"github.com/okhani/dav/internal/domain/davpath"
	"github.com/okhani/dav/internal/domain/model"
)

// lockinfoXML mirrors the LOCK request body per RFC 4918 9.10.
type lockinfoXML struct {
	XMLName   xml.Name `xml:"DAV: lockinfo"`
	Exclusive *struct{} `xml:"lockscope>exclusive"`
	Shared    *struct{} `xml:"lockscope>shared"`
	Write     *struct{} `xml:"locktype>write"`
	Owner     struct {
		InnerXML string `xml:",innerxml"`
	} `xml:"owner"`
}

// handleLock grants or refreshes a lock per RFC 4918 9.10. Locking an
// unmapped URL creates an empty lock-null resource and answers 201.
func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request, path *davpath.Path, body []byte) error {
	ctx := r.Context()

	if h.ls == nil {
		return statusError(http.StatusMethodNotAllowed)
	}

	duration, infinite, err := cond.ParseTimeout(r.Header.Get("Timeout"))
	if err != nil {
		return statusError(http.StatusBadRequest)
	}

	deep := true
	switch r.Header.Get("Depth") {
	case "", "infinity":
	case "0":
		deep = false
	default:
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

	// An empty body refreshes an existing lock named in the If header.
	if len(strings.TrimSpace(string(body))) == 0 {
		return h.refreshLock(w, r, path, tokens, duration, infinite)
	}

	var li lockinfoXML
	if err := xml.Unmarshal(body, &li); err != nil || li.Write == nil || (li.Exclusive == nil) == (li.Shared == nil) {
		return statusError(http.StatusBadRequest)
	}
	scope := locks.Exclusive
	if li.Shared != nil {
		scope = locks.Shared
	}

	created := false
	if meta == nil {
		// Lock-null resource: materialize an empty file under the lock.
		if !h.hasParent(ctx, path) {
			return statusError(http.StatusConflict)
		}
		f, err := h.fs.Create(ctx, path.FSPath())
		if err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		created = true
	} else if meta.Dir {
		path.AddSlash()
	}

	l, err := h.ls.Lock(ctx, locks.Request{
		Path:      path.FSPath(),
		Principal: PrincipalFromContext(ctx),
		Scope:     scope,
		Infinite:  deep,
		OwnerXML:  li.Owner.InnerXML,
		Duration:  duration,
		NoExpiry:  infinite,
	})
	if err != nil {
		if created {
			_ = h.fs.RemoveAll(ctx, path.FSPath())
		}
		if errors.Is(err, locks.ErrLocked) {
			return statusError(http.StatusLocked)
		}
		return err
	}

	h.record(ctx, model.Change{Op: model.OpLock, Path: path.FSPath()})

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set("Lock-Token", "<"+l.Token+">")
	return writeLockDiscovery(w, status, l)
}

// refreshLock extends a lock the client already holds.
func (h *Handler) refreshLock(w http.ResponseWriter, r *http.Request, path *davpath.Path, tokens []string, duration time.Duration, infinite bool) error {
	ctx := r.Context()

	if len(tokens) == 0 {
		return statusError(http.StatusBadRequest)
	}

	for _, token := range tokens {
		l, err := h.ls.Refresh(ctx, path.FSPath(), token, duration, infinite)
		if err == nil {
			h.record(ctx, model.Change{Op: model.OpLock, Path: path.FSPath()})
			return writeLockDiscovery(w, http.StatusOK, l)
		}
		if !errors.Is(err, locks.ErrNoSuchLock) {
			return err
		}
	}
	return statusError(http.StatusPreconditionFailed)
}

// handleUnlock removes a lock per RFC 4918 9.11.
func (h *Handler) handleUnlock(w http.ResponseWriter, r *http.Request, path *davpath.Path) error {
	ctx := r.Context()

	if h.ls == nil {
		return statusError(http.StatusMethodNotAllowed)
	}

	token := strings.TrimSpace(r.Header.Get("Lock-Token"))
	if !strings.HasPrefix(token, "<") || !strings.HasSuffix(token, ">") {
		return statusError(http.StatusBadRequest)
	}
	token = token[1 : len(token)-1]

	err := h.ls.Unlock(ctx, path.FSPath(), token, PrincipalFromContext(ctx))
	switch {
	case errors.Is(err, locks.ErrNoSuchLock):
		return statusError(http.StatusConflict)
	case errors.Is(err, locks.ErrForbidden):
		return statusError(http.StatusForbidden)
	case err != nil:
		return err
	}

	h.record(ctx, model.Change{Op: model.OpUnlock, Path: path.FSPath()})

	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// activeLockXML renders one DAV:activelock element.
func activeLockXML(l locks.Lock) string {
	var b strings.Builder
	b.WriteString(`<activelock xmlns="DAV:">`)
	b.WriteString(`<locktype><write/></locktype>`)
	if l.Scope == locks.Exclusive {
		b.WriteString(`<lockscope><exclusive/></lockscope>`)
	} else {
		b.WriteString(`<lockscope><shared/></lockscope>`)
	}
	if l.Infinite {
		b.WriteString(`<depth>infinity</depth>`)
	} else {
		b.WriteString(`<depth>0</depth>`)
	}
	if l.OwnerXML != "" {
		b.WriteString(`<owner>` + l.OwnerXML + `</owner>`)
	}
	b.WriteString(`<timeout>` + cond.FormatTimeout(l.Duration, l.NoExpiry) + `</timeout>`)
	b.WriteString(`<locktoken><href>` + xmlEscape(l.Token) + `</href></locktoken>`)
	b.WriteString(`<lockroot><href>` + xmlEscape(l.Path) + `</href></lockroot>`)
	b.WriteString(`</activelock>`)
	return b.String()
}

// writeLockDiscovery answers a LOCK with the prop/lockdiscovery body.
func writeLockDiscovery(w http.ResponseWriter, status int, l locks.Lock) error {
	body := xml.Header +
		`<D:prop xmlns:D="DAV:"><D:lockdiscovery>` +
		activeLockXML(l) +
		`</D:lockdiscovery></D:prop>`

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write([]byte(body))
	return err
}
