package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/headed-relay/internal/config"
	"github.com/shehryarbajwa/headed-relay/internal/launchserver"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var backend string
	var browserName string

	cmd := &cobra.Command{
		Use:   "browserserver",
		Short: "Start Playwright's own browser server with visible windows",
		Long: `Launches Playwright's remote browser server on port 3337 and prints the
WebSocket endpoint clients should connect to.

Examples:
  browserserver
  browserserver --browser firefox
  browserserver --backend docker`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()

			cfg, err := config.LoadBrowserServer()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("backend") {
				cfg.Backend = backend
			}
			if cmd.Flags().Changed("browser") {
				cfg.Browser = browserName
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			run(cfg)
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "local", "where to run the server: local or docker")
	cmd.Flags().StringVar(&browserName, "browser", "chromium", "browser to serve: chromium, firefox or webkit")

	return cmd
}

func run(cfg *config.BrowserServer) {
	log.Println("Starting HEADED Playwright browser server...")

	srv, err := launchserver.New(cfg.Backend, launchserver.OptionsFromConfig(cfg))
	if err != nil {
		log.Fatalf("❌ Failed to start browser server: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	endpoint, err := srv.Start(ctx)
	if err != nil {
		closeServer(srv)
		if ctx.Err() != nil {
			log.Println("✅ Browser server stopped")
			os.Exit(0)
		}
		log.Fatalf("❌ Failed to start browser server: %v", err)
	}
	cancel()

	log.Println("✅ HEADED Browser Server started successfully!")
	log.Printf("📡 WebSocket endpoint: %s", endpoint)
	if !cfg.Headless {
		log.Println("🌐 Browsers will be VISIBLE when used")
	}
	log.Println("🛑 Press Ctrl+C to stop the server")

	<-quit

	log.Println("\n🔄 Shutting down browser server...")
	closeServer(srv)
	log.Println("✅ Browser server stopped")
	os.Exit(0)
}

func closeServer(srv launchserver.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Close(ctx); err != nil {
		log.Printf("⚠️ %v", err)
	}
}
