package models

import "time"

// ConnectionInfo describes a live relay connection and what it holds
type ConnectionInfo struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remoteAddr"`
	StartedAt  time.Time `json:"startedAt"`
	Browsers   int       `json:"browsers"`
	Contexts   int       `json:"contexts"`
	Pages      int       `json:"pages"`
}

// HealthStatus is returned by the health endpoint
type HealthStatus struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}
