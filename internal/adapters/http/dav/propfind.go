package dav

import (
	"context"
	"encoding/xml"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/okhani/dav/internal/adapters/fs"
	"github.com/okhani/dav/internal/domain/davpath"
	"github.com/okhani/dav/internal/domain/props"
)

// supportedLockXML is the static supportedlock property value.
const supportedLockXML = `<lockentry xmlns="DAV:"><lockscope><exclusive/></lockscope><locktype><write/></locktype></lockentry>` +
	`<lockentry xmlns="DAV:"><lockscope><shared/></lockscope><locktype><write/></locktype></lockentry>`

// handlePropfind implements PROPFIND per RFC 4918 9.1.
func (h *Handler) handlePropfind(w http.ResponseWriter, r *http.Request, path *davpath.Path, body []byte) error {
	ctx := r.Context()

	depth := r.Header.Get("Depth")
	if depth == "" {
		depth = "infinity"
	}
	switch depth {
	case "0", "1":
	case "infinity":
		if !h.infiniteDepth {
			return preconditionError(http.StatusForbidden,
				props.RenderPrecondition("propfind-finite-depth"))
		}
	default:
		return statusError(http.StatusBadRequest)
	}

	pf, err := props.ParsePropfind(body)
	if err != nil {
		return statusError(http.StatusBadRequest)
	}

	meta, err := h.fs.Stat(ctx, path.FSPath())
	if err != nil {
		return err
	}
	if meta.Dir {
		path.AddSlash()
	}

	ms := &props.Multistatus{}
	if err := h.propfindWalk(ctx, ms, pf, path, meta, depth); err != nil {
		return err
	}

	return writeMultistatus(w, ms)
}

// propfindWalk adds the response for path and recurses per depth.
func (h *Handler) propfindWalk(ctx context.Context, ms *props.Multistatus, pf *props.Propfind, path *davpath.Path, meta fs.Metadata, depth string) error {
	resp, err := h.propfindResponse(ctx, pf, path, meta)
	if err != nil {
		return err
	}
	ms.Add(resp)

	if !meta.Dir || depth == "0" {
		return nil
	}
	childDepth := "0"
	if depth == "infinity" {
		childDepth = "infinity"
	}

	entries, err := h.fs.ReadDir(ctx, path.FSPath())
	if err != nil {
		return err
	}
	for _, e := range entries {
		child := path.Join(e.Name)
		if e.Meta.Dir {
			child.AddSlash()
		}
		if err := h.propfindWalk(ctx, ms, pf, child, e.Meta, childDepth); err != nil {
			return err
		}
	}
	return nil
}

// propfindResponse builds one multistatus response entry.
func (h *Handler) propfindResponse(ctx context.Context, pf *props.Propfind, path *davpath.Path, meta fs.Metadata) (props.Response, error) {
	resp := props.Response{Href: path.EncodedWithPrefix()}

	dead, err := h.fs.DeadProps(ctx, path.FSPath())
	if err != nil {
		return resp, err
	}

	switch pf.Mode {
	case props.ModePropname:
		var names []props.Property
		for _, n := range props.LiveNames {
			names = append(names, props.Property{XMLName: n})
		}
		for _, p := range dead {
			names = append(names, props.Property{XMLName: p.XMLName})
		}
		resp.Propstats = []props.Propstat{{Status: http.StatusOK, Props: names}}

	case props.ModeAllprop:
		var found []props.Property
		for _, n := range props.LiveNames {
			if p, ok := h.liveProp(ctx, n, path, meta); ok {
				found = append(found, p)
			}
		}
		found = append(found, dead...)
		resp.Propstats = []props.Propstat{{Status: http.StatusOK, Props: found}}

	case props.ModeProp:
		var found, missing []props.Property
		for _, n := range pf.Names {
			if props.IsLive(n) {
				if p, ok := h.liveProp(ctx, n, path, meta); ok {
					found = append(found, p)
				} else {
					missing = append(missing, props.Property{XMLName: n})
				}
				continue
			}
			if p, ok := findDead(dead, n); ok {
				found = append(found, p)
			} else {
				missing = append(missing, props.Property{XMLName: n})
			}
		}
		resp.Propstats = []props.Propstat{
			{Status: http.StatusOK, Props: found},
			{Status: http.StatusNotFound, Props: missing},
		}
	}

	return resp, nil
}

// liveProp computes the value of a live property. The second return is
// false when the property does not apply to this resource.
func (h *Handler) liveProp(ctx context.Context, name xml.Name, path *davpath.Path, meta fs.Metadata) (props.Property, bool) {
	p := props.Property{XMLName: name}

	switch name {
	case props.NameDisplayName:
		p.InnerXML = []byte(xmlEscape(meta.Name))
	case props.NameCreationDate:
		p.InnerXML = []byte(meta.Created.UTC().Format(time.RFC3339))
	case props.NameGetLastModified:
		p.InnerXML = []byte(meta.Modified.UTC().Format(http.TimeFormat))
	case props.NameGetETag:
		if meta.Dir {
			return p, false
		}
		p.InnerXML = []byte(xmlEscape(meta.ETag))
	case props.NameGetContentLength:
		if meta.Dir {
			return p, false
		}
		p.InnerXML = []byte(fmt.Sprintf("%d", meta.Size))
	case props.NameGetContentType:
		if meta.Dir {
			return p, false
		}
		ctype := mime.TypeByExtension(filepath.Ext(meta.Name))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		p.InnerXML = []byte(xmlEscape(ctype))
	case props.NameResourceType:
		if meta.Dir {
			p.InnerXML = []byte(`<collection xmlns="DAV:"/>`)
		}
	case props.NameSupportedLock:
		if h.ls == nil {
			return p, false
		}
		p.InnerXML = []byte(supportedLockXML)
	case props.NameLockDiscovery:
		if h.ls == nil {
			return p, false
		}
		var inner []byte
		for _, l := range h.ls.Discover(ctx, path.FSPath()) {
			inner = append(inner, activeLockXML(l)...)
		}
		p.InnerXML = inner
	default:
		return p, false
	}

	return p, true
}

func findDead(dead []props.Property, name xml.Name) (props.Property, bool) {
	for _, p := range dead {
		if p.XMLName == name {
			return p, true
		}
	}
	return props.Property{}, false
}

// writeMultistatus renders ms as a 207 response.
func writeMultistatus(w http.ResponseWriter, ms *props.Multistatus) error {
	body, err := ms.Render()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, err = w.Write(body)
	return err
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
