package dav

import (
	"net/http"
	"sort"
	"strings"

	"github.com/okhani/dav/internal/domain/davpath"
)

// handleOptions advertises the supported DAV classes and allowed methods.
func (h *Handler) handleOptions(w http.ResponseWriter, _ *http.Request, _ *davpath.Path) error {
	class := "1"
	if h.ls != nil {
		class = "1, 2"
	}
	w.Header().Set("DAV", class)
	w.Header().Set("MS-Author-Via", "DAV")
	w.Header().Set("Allow", strings.Join(h.allowList(), ", "))
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
	return nil
}

// allowList returns the methods the handler will accept, sorted.
func (h *Handler) allowList() []string {
	var out []string
	for m := range davMethods {
		if (m == "LOCK" || m == "UNLOCK") && h.ls == nil {
			continue
		}
		if h.allowed != nil && !h.allowed[m] {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
