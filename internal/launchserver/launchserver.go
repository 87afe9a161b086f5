// Package launchserver starts Playwright's own remote browser server, either
// through the bundled driver on this machine or inside a Docker container.
package launchserver

import (
	"context"
	"fmt"
	"time"

	"github.com/shehryarbajwa/headed-relay/internal/config"
)

// Server is a running Playwright browser server.
type Server interface {
	// Start launches the server and returns its WebSocket endpoint.
	Start(ctx context.Context) (string, error)
	// Close stops the server.
	Close(ctx context.Context) error
}

// Options describes the browser server to start
type Options struct {
	Browser      string
	Port         int
	Headless     bool
	Image        string
	Version      string
	ReadyTimeout time.Duration
}

// OptionsFromConfig converts loaded settings into launch options.
func OptionsFromConfig(cfg *config.BrowserServer) Options {
	return Options{
		Browser:      cfg.Browser,
		Port:         cfg.Port,
		Headless:     cfg.Headless,
		Image:        cfg.Image,
		Version:      cfg.Version,
		ReadyTimeout: 60 * time.Second,
	}
}

// New returns the server for the named backend.
func New(backend string, opts Options) (Server, error) {
	switch backend {
	case "local":
		return NewLocal(opts), nil
	case "docker":
		return NewDocker(opts)
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}
