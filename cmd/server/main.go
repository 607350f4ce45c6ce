// Package main implements the entry point for the jot API server, which
// runs the voice-note job pipeline: signed upload grants, job
// registration, the background transcription worker, and task insertion.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/phrazzld/jot-api/internal/config"
	"github.com/phrazzld/jot-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run migrations (up|down|status) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	if *migrateCmd != "" {
		if err := runMigrations(cfg, *migrateCmd); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		return
	}

	if err := run(cfg, appLogger); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

// run wires the application and serves until a shutdown signal arrives.
func run(cfg *config.Config, appLogger *slog.Logger) error {
	ctx := context.Background()

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	app.worker.Start()
	defer app.worker.Stop()

	return app.startHTTPServer(ctx, app.setupRouter())
}
