package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinevault/api/internal/app"
	"github.com/cinevault/api/internal/config"
	"github.com/cinevault/api/internal/logging"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "sync" {
		runSync(os.Args[2:])
		return
	}

	// Setup CLI flags
	flags := config.SetupFlags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("error parsing flags", "error", err)
		os.Exit(1)
	}

	// Get config path from flags
	configPath, _ := flags.GetString("config")

	// Load configuration
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		slog.Error("error loading config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logging.Setup(cfg.Log)

	// Create application
	application, err := app.New(cfg)
	if err != nil {
		slog.Error("error creating application", "error", err)
		os.Exit(1)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("received shutdown signal")
		cancel()

		// Give server time to shutdown gracefully
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := application.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during shutdown", "error", err)
		}
	}()

	// Start application
	if err := application.Start(ctx); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// runSync drains the content channel backlog once and exits. Useful for
// indexing an existing channel before first deployment.
func runSync(args []string) {
	flags := config.SetupFlags()
	if err := flags.Parse(args); err != nil {
		slog.Error("error parsing flags", "error", err)
		os.Exit(1)
	}

	configPath, _ := flags.GetString("config")

	cfg, err := config.Load(configPath, flags)
	if err != nil {
		slog.Error("error loading config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log)

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("error creating application", "error", err)
		os.Exit(1)
	}
	defer application.DB.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	n, err := application.Replayer.RunOnce(ctx)
	if err != nil {
		slog.Error("error replaying channel backlog", "error", err, "processed", n)
		os.Exit(1)
	}
	slog.Info("channel backlog replayed", "processed", n)
}
