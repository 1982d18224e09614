package mgmt

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// maxRecent caps the recent-changes window exposed over /stats.
const maxRecent = 100

// StatsHandler handles stats requests.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests. The optional recent query
// parameter appends the N most recent changes.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	stats := h.provider.GetStats()

	if raw := r.URL.Query().Get("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid recent parameter", http.StatusBadRequest)
			return
		}
		if n > maxRecent {
			n = maxRecent
		}
		stats["recent"] = h.provider.RecentChanges(r.Context(), n)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(stats)
}
