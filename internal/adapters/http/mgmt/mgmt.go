// Package mgmt serves the management surface: health and metrics,
// activity stats, and the embedded status page.
package mgmt

import (
	"context"
	"net/http"

	"github.com/okhani/dav/internal/domain/model"
)

// StatsProvider exposes service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
	RecentChanges(ctx context.Context, n int) []model.Change
}

// Server wires the management routes.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	statusHandler *StatusHandler
}

// NewServer creates a management server over the given stats provider.
func NewServer(provider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(provider),
		statusHandler: NewStatusHandler(),
	}
}

// Register attaches the management routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("/stats", s.statsHandler.HandleStats)
	mux.HandleFunc("/_status", s.statusHandler.HandleStatus)
}
