package api

import (
	"github.com/gorilla/mux"
	"github.com/shehryarbajwa/headed-relay/internal/ratelimit"
	"github.com/shehryarbajwa/headed-relay/internal/relay"
)

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes(relayServer *relay.Server, rateLimiter *ratelimit.Limiter) *mux.Router {
	r := mux.NewRouter()

	// Status endpoints (not rate limited)
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/v1/connections", h.ListConnections).Methods("GET")

	// WebSocket relay endpoints (rate limited per client)
	ws := r.PathPrefix("/").Subrouter()
	ws.Use(RateLimitMiddleware(rateLimiter))
	ws.HandleFunc("/", relayServer.HandleConnection).Methods("GET")
	ws.HandleFunc("/ws", relayServer.HandleConnection).Methods("GET")

	return r
}
