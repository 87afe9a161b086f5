package api

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/shehryarbajwa/headed-relay/internal/ratelimit"
)

// RateLimitMiddleware rejects clients that open connections too quickly
func RateLimitMiddleware(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				json.NewEncoder(w).Encode(map[string]string{
					"error": "Rate limit exceeded. Slow down new connections.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey extracts the client host from the request
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
