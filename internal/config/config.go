package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// NotFoundPolicy decides what the relay does when a command names a handle
// that does not exist on the connection.
type NotFoundPolicy string

const (
	// NotFoundError replies with an error envelope.
	NotFoundError NotFoundPolicy = "error"
	// NotFoundDrop sends no reply at all.
	NotFoundDrop NotFoundPolicy = "drop"
)

// Relay holds settings for the WebSocket command relay
type Relay struct {
	Port              int            `envconfig:"RELAY_PORT" default:"3333"`
	Host              string         `envconfig:"RELAY_HOST"`
	Browser           string         `envconfig:"RELAY_BROWSER" default:"chromium"`
	Headless          bool           `envconfig:"RELAY_HEADLESS" default:"false"`
	Devtools          bool           `envconfig:"RELAY_DEVTOOLS" default:"true"`
	MaxBrowsers       int64          `envconfig:"RELAY_MAX_BROWSERS" default:"10"`
	NotFoundPolicy    NotFoundPolicy `envconfig:"RELAY_NOT_FOUND_POLICY" default:"error"`
	NavigationTimeout time.Duration  `envconfig:"RELAY_NAVIGATION_TIMEOUT" default:"0s"`
	MessagesPerSecond float64        `envconfig:"RELAY_MESSAGES_PER_SECOND" default:"50"`
	MessageBurst      int            `envconfig:"RELAY_MESSAGE_BURST" default:"100"`
	UpgradesPerMinute int            `envconfig:"RELAY_UPGRADES_PER_MINUTE" default:"60"`
	UpgradeBurst      int            `envconfig:"RELAY_UPGRADE_BURST" default:"10"`
}

// Addr returns the listen address for the HTTP server.
func (r Relay) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Validate checks values envconfig cannot.
func (r Relay) Validate() error {
	if r.Port <= 0 || r.Port > 65535 {
		return fmt.Errorf("invalid port %d", r.Port)
	}
	switch r.NotFoundPolicy {
	case NotFoundError, NotFoundDrop:
	default:
		return fmt.Errorf("unknown not-found policy %q", r.NotFoundPolicy)
	}
	if err := validateBrowser(r.Browser); err != nil {
		return err
	}
	if r.MaxBrowsers < 1 {
		return fmt.Errorf("max browsers must be at least 1")
	}
	return nil
}

// BrowserServer holds settings for the managed Playwright browser server
type BrowserServer struct {
	Port     int    `envconfig:"BROWSER_SERVER_PORT" default:"3337"`
	Browser  string `envconfig:"BROWSER_SERVER_BROWSER" default:"chromium"`
	Headless bool   `envconfig:"BROWSER_SERVER_HEADLESS" default:"false"`
	Backend  string `envconfig:"BROWSER_SERVER_BACKEND" default:"local"`
	Image    string `envconfig:"BROWSER_SERVER_IMAGE" default:"mcr.microsoft.com/playwright:v1.52.0-noble"`
	Version  string `envconfig:"BROWSER_SERVER_PLAYWRIGHT_VERSION" default:"1.52.0"`
}

// Validate checks values envconfig cannot.
func (b BrowserServer) Validate() error {
	if b.Port <= 0 || b.Port > 65535 {
		return fmt.Errorf("invalid port %d", b.Port)
	}
	if b.Backend != "local" && b.Backend != "docker" {
		return fmt.Errorf("unknown backend %q", b.Backend)
	}
	return validateBrowser(b.Browser)
}

func validateBrowser(name string) error {
	switch name {
	case "chromium", "firefox", "webkit":
		return nil
	}
	return fmt.Errorf("unsupported browser %q", name)
}

// LoadDotEnv loads a .env file if one is present.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}

// LoadRelay reads relay settings from the environment.
func LoadRelay() (*Relay, error) {
	var cfg Relay
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load relay config: %w", err)
	}
	return &cfg, nil
}

// LoadBrowserServer reads browser server settings from the environment.
func LoadBrowserServer() (*BrowserServer, error) {
	var cfg BrowserServer
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load browser server config: %w", err)
	}
	return &cfg, nil
}
