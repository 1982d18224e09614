package mgmt

import (
	"net/http"
)

// StatusHandler serves the embedded status page.
type StatusHandler struct{}

// NewStatusHandler creates a new status page handler.
func NewStatusHandler() *StatusHandler {
	return &StatusHandler{}
}

// HandleStatus handles GET /_status requests with the embedded page,
// which polls /stats from the browser.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(statusPage)
}
