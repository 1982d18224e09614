package dav

import (
	"net/http"

	"github.com/okhani/dav/internal/domain/davpath"
	"github.com/okhani/dav/internal/domain/model"
	"github.com/okhani/dav/internal/domain/props"
)

// handleProppatch implements PROPPATCH per RFC 4918 9.2. The patch set is
// atomic: if any property cannot be changed, nothing is.
func (h *Handler) handleProppatch(w http.ResponseWriter, r *http.Request, path *davpath.Path, body []byte) error {
	ctx := r.Context()

	patches, err := props.ParsePropertyUpdate(body)
	if err != nil {
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
	if err := h.checkLocks(ctx, path, false, tokens); err != nil {
		return err
	}
	if meta.Dir {
		path.AddSlash()
	}

	// Live properties are protected. Touching one fails it with 403 and
	// everything else with 424.
	var protected, writable []props.Property
	for _, patch := range patches {
		for _, p := range patch.Props {
			if props.IsLive(p.XMLName) {
				protected = append(protected, props.Property{XMLName: p.XMLName})
			} else {
				writable = append(writable, props.Property{XMLName: p.XMLName})
			}
		}
	}

	resp := props.Response{Href: path.EncodedWithPrefix()}
	if len(protected) > 0 {
		resp.Propstats = []props.Propstat{
			{Status: http.StatusForbidden, Props: protected},
			{Status: http.StatusFailedDependency, Props: writable},
		}
	} else {
		if err := h.fs.PatchDeadProps(ctx, path.FSPath(), patches); err != nil {
			return err
		}
		resp.Propstats = []props.Propstat{{Status: http.StatusOK, Props: writable}}
		h.record(ctx, model.Change{Op: model.OpProppatch, Path: path.FSPath()})
	}

	ms := &props.Multistatus{}
	ms.Add(resp)
	return writeMultistatus(w, ms)
}
