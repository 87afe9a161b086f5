package api

import (
	"encoding/json"
	"net/http"

	"github.com/shehryarbajwa/headed-relay/internal/session"
	"github.com/shehryarbajwa/headed-relay/pkg/models"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sessionMgr *session.Manager
}

// NewHandler creates a new HTTP handler
func NewHandler(sessionMgr *session.Manager) *Handler {
	return &Handler{
		sessionMgr: sessionMgr,
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.HealthStatus{
		Status:      "ok",
		Connections: h.sessionMgr.Count(),
	})
}

// ListConnections handles GET /v1/connections
func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.sessionMgr.List())
}
