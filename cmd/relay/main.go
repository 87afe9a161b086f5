package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/headed-relay/internal/api"
	"github.com/shehryarbajwa/headed-relay/internal/browser"
	"github.com/shehryarbajwa/headed-relay/internal/config"
	"github.com/shehryarbajwa/headed-relay/internal/ratelimit"
	"github.com/shehryarbajwa/headed-relay/internal/relay"
	"github.com/shehryarbajwa/headed-relay/internal/session"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "relay [port]",
		Short: "WebSocket command relay that drives visible browsers",
		Long: `Accepts JSON commands over WebSocket and runs them against headed
Playwright browsers. Every browser a connection creates is closed when the
connection goes away.

Examples:
  relay
  relay 4444`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()

			cfg, err := config.LoadRelay()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				port, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid port %q: %w", args[0], err)
				}
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			run(cfg, verbose)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show Playwright driver output")

	return cmd
}

func run(cfg *config.Relay, verbose bool) {
	log.Printf("Starting custom HEADED Playwright server on port %d...", cfg.Port)

	engine, err := browser.NewPlaywrightEngine(cfg.Browser, verbose)
	if err != nil {
		log.Fatalf("Failed to start browser engine: %v", err)
	}
	log.Printf("✓ Playwright driver ready (%s)", cfg.Browser)

	launcher := browser.NewLauncher(engine, browser.LaunchOptions{
		Headless: cfg.Headless,
		Devtools: cfg.Devtools,
	}, cfg.MaxBrowsers)

	sessionMgr := session.NewManager()
	relayServer := relay.NewServer(launcher, sessionMgr, relay.OptionsFromConfig(cfg))
	log.Printf("✓ Relay initialized (max %d browsers, unknown handles: %s)", cfg.MaxBrowsers, cfg.NotFoundPolicy)

	rateLimiter := ratelimit.NewLimiter(cfg.UpgradesPerMinute, cfg.UpgradeBurst)
	router := api.NewHandler(sessionMgr).SetupRoutes(relayServer, rateLimiter)

	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("🚀 WebSocket server listening on ws://localhost:%d/", cfg.Port)
		if !cfg.Headless {
			log.Println("Ready to launch VISIBLE browsers!")
		}
		log.Println("Press Ctrl+C to stop the server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("\n⏳ Shutting down server...")

	sessionMgr.CloseAll()
	log.Println("✓ All browsers closed")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Server forced to shutdown: %v", err)
	}

	if err := engine.Stop(); err != nil {
		log.Printf("⚠️ %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}
