package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves health probe endpoints backed by a Manager.
type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

// RegisterRoutes registers probe routes on the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/readiness", h.handleReadiness)
	mux.HandleFunc("/liveness", h.handleLiveness)
}

// handleHealth returns the full aggregated health report.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	overall := h.mgr.Check(r.Context())
	status := http.StatusOK
	if overall.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(overall)
}

// handleReadiness is the readiness probe: 200 only when critical components
// are up.
func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.mgr.Ready(r.Context()) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

// handleLiveness is the liveness probe: the process is serving, so it is
// alive.
func (h *Handler) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
