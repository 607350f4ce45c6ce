package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/jot-api/internal/config"
	"github.com/phrazzld/jot-api/internal/platform/gcs"
	"github.com/phrazzld/jot-api/internal/platform/gemini"
	"github.com/phrazzld/jot-api/internal/platform/postgres"
	"github.com/phrazzld/jot-api/internal/service"
	"github.com/phrazzld/jot-api/internal/service/auth"
	"github.com/phrazzld/jot-api/internal/store"
	"github.com/phrazzld/jot-api/internal/worker"
)

// application holds the wired dependencies of the running server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jobStore  store.JobStore
	taskStore store.TaskItemStore

	jwtService    auth.JWTService
	uploadService service.UploadService
	jobService    service.JobService

	worker *worker.Worker
}

// newApplication builds the full dependency graph from configuration:
// database, stores, object store and LLM clients, services, and the
// background worker.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	appLogger *slog.Logger,
) (*application, error) {
	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	jobStore := postgres.NewPostgresJobStore(db, appLogger)
	taskStore := postgres.NewPostgresTaskItemStore(db, appLogger)

	objects, err := gcs.NewClient(ctx, cfg.Storage.Bucket, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	transcriber, err := gemini.NewTranscriber(ctx, appLogger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	extractor, err := gemini.NewExtractor(ctx, appLogger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	uploadService, err := service.NewUploadService(
		jobStore,
		objects,
		time.Duration(cfg.Storage.UploadURLTTLSeconds)*time.Second,
		appLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload service: %w", err)
	}

	jobService, err := service.NewJobService(jobStore, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create job service: %w", err)
	}

	committer, err := service.NewTaskCommitService(db, jobStore, taskStore, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task commit service: %w", err)
	}

	w := worker.New(
		jobStore,
		objects,
		transcriber,
		extractor,
		committer,
		worker.Config{
			PollInterval:       time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second,
			WorkerCount:        cfg.Worker.WorkerCount,
			JobTimeout:         time.Duration(cfg.Worker.JobTimeoutSeconds) * time.Second,
			StaleClaimAge:      time.Duration(cfg.Worker.StaleClaimAgeSeconds) * time.Second,
			StaleCheckInterval: time.Duration(cfg.Worker.StaleCheckIntervalSeconds) * time.Second,
		},
		appLogger,
	)

	return &application{
		config:        cfg,
		logger:        appLogger,
		db:            db,
		jobStore:      jobStore,
		taskStore:     taskStore,
		jwtService:    jwtService,
		uploadService: uploadService,
		jobService:    jobService,
		worker:        w,
	}, nil
}

// cleanup releases resources held by the application.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
