// Package worker implements the background loop that drives queued jobs
// through transcription and task extraction. Multiple instances may run
// concurrently; the claim transition in the job store guarantees at most
// one holds a given job at a time.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/extraction"
	"github.com/phrazzld/jot-api/internal/objectstore"
	"github.com/phrazzld/jot-api/internal/redact"
	"github.com/phrazzld/jot-api/internal/store"
	"github.com/phrazzld/jot-api/internal/transcription"
)

// statusWriteTimeout bounds the status updates the worker makes outside a
// job's own processing deadline, so a failed job can still be recorded
// after its context expired.
const statusWriteTimeout = 10 * time.Second

// maxErrorMessageLen caps the error text persisted on a failed job.
const maxErrorMessageLen = 500

// Config holds the worker loop settings.
type Config struct {
	// PollInterval is how often each worker checks for queued jobs.
	PollInterval time.Duration

	// WorkerCount determines how many concurrent claim loops run.
	WorkerCount int

	// JobTimeout bounds one job's processing, covering the blob download
	// and both capability calls. Expiry fails the job with the timeout
	// error code.
	JobTimeout time.Duration

	// StaleClaimAge is how long a job may sit in transcribing before its
	// claim is considered abandoned.
	StaleClaimAge time.Duration

	// StaleCheckInterval is how often the stale-claim sweep runs.
	// If zero, defaults to one minute.
	StaleCheckInterval time.Duration
}

// TaskCommitter commits extracted task items together with the owning
// job's inserted status.
type TaskCommitter interface {
	CommitTasks(ctx context.Context, jobID uuid.UUID, items []*domain.TaskItem) error
}

// Worker polls for queued jobs and processes them to a terminal state.
type Worker struct {
	jobs        store.JobStore
	objects     objectstore.Client
	transcriber transcription.Transcriber
	extractor   extraction.Extractor
	committer   TaskCommitter
	cfg         Config
	logger      *slog.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a Worker. If logger is nil, a default logger is used.
func New(
	jobs store.JobStore,
	objects objectstore.Client,
	transcriber transcription.Transcriber,
	extractor extraction.Extractor,
	committer TaskCommitter,
	cfg Config,
	logger *slog.Logger,
) *Worker {
	if cfg.StaleCheckInterval == 0 {
		cfg.StaleCheckInterval = time.Minute
	}

	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		jobs:        jobs,
		objects:     objects,
		transcriber: transcriber,
		extractor:   extractor,
		committer:   committer,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "worker")),
		ctx:         ctx,
		cancelFunc:  cancel,
	}
}

// Start launches the claim loops and the stale-claim monitor.
func (w *Worker) Start() {
	for i := 0; i < w.cfg.WorkerCount; i++ {
		w.wg.Add(1)
		go w.run(i)
	}

	w.wg.Add(1)
	go w.staleClaimMonitor()

	w.logger.Info("worker started",
		slog.Int("worker_count", w.cfg.WorkerCount),
		slog.Duration("poll_interval", w.cfg.PollInterval),
		slog.Duration("job_timeout", w.cfg.JobTimeout))
}

// Stop signals all loops to finish and waits for them. A job currently
// being processed keeps its claim; the stale-claim sweep re-queues it
// after the restart.
func (w *Worker) Stop() {
	w.cancelFunc()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// run is one claim loop: on every tick it drains the queue, claiming and
// processing jobs oldest first until none remain.
func (w *Worker) run(id int) {
	defer w.wg.Done()

	log := w.logger.With(slog.Int("worker_id", id))

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.drainQueue(log)

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.drainQueue(log)
		}
	}
}

// drainQueue claims and processes jobs until the queue is empty or the
// worker is stopping.
func (w *Worker) drainQueue(log *slog.Logger) {
	for w.ctx.Err() == nil {
		job, err := w.jobs.ClaimNextQueued(w.ctx)
		if err != nil {
			if !errors.Is(err, store.ErrNoQueuedJobs) && w.ctx.Err() == nil {
				log.Error("failed to claim queued job",
					slog.String("error", redact.Error(err)))
			}
			return
		}

		w.process(log, job)
	}
}

// process drives one claimed job through download, transcription,
// extraction, and commit. Every failure lands on the job row; a job never
// vanishes silently.
func (w *Worker) process(log *slog.Logger, job *domain.Job) {
	log = log.With(slog.String("job_id", job.ID.String()))
	log.Debug("processing job", slog.String("storage_key", job.StorageKey))

	ctx, cancel := context.WithTimeout(w.ctx, w.cfg.JobTimeout)
	defer cancel()

	audio, err := w.objects.Download(ctx, job.StorageKey)
	if err != nil {
		switch {
		case errors.Is(err, objectstore.ErrObjectNotFound):
			// A queued row whose blob never arrived is a registrar
			// contract violation; record it distinctly so operators see
			// it rather than the job being silently skipped.
			w.markFailed(log, job.ID, domain.ErrorCodeBlobMissing, err)
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			w.markFailed(log, job.ID, domain.ErrorCodeTimeout, err)
		default:
			w.markFailed(log, job.ID, domain.ErrorCodeDownloadFailed, err)
		}
		return
	}

	transcript, err := w.transcriber.Transcribe(ctx, audio, job.ContentType)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			w.markFailed(log, job.ID, domain.ErrorCodeTimeout, err)
		} else {
			w.markFailed(log, job.ID, domain.ErrorCodeTranscriptionFailed, err)
		}
		return
	}

	if err := w.jobs.MarkTranscribed(w.statusCtx(), job.ID, transcript); err != nil {
		if errors.Is(err, store.ErrWrongStatus) {
			// The claim was swept as stale and the job re-queued; let
			// the new claimant finish it.
			log.Warn("lost claim before transcript write")
			return
		}
		w.markFailed(log, job.ID, domain.ErrorCodeStoreFailure, err)
		return
	}

	items, err := w.extractor.ExtractTasks(ctx, transcript, job.OwnerID, job.ID)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			w.markFailed(log, job.ID, domain.ErrorCodeTimeout, err)
		} else {
			w.markFailed(log, job.ID, domain.ErrorCodeExtractionFailed, err)
		}
		return
	}

	if err := w.committer.CommitTasks(w.statusCtx(), job.ID, items); err != nil {
		if errors.Is(err, store.ErrWrongStatus) {
			log.Warn("lost claim before task commit")
			return
		}
		w.markFailed(log, job.ID, domain.ErrorCodeStoreFailure, err)
		return
	}

	log.Info("job processed",
		slog.Int("task_count", len(items)),
		slog.Int("transcript_len", len(transcript)))
}

// markFailed records a terminal failure on the job row. During shutdown
// the claim is left in place instead, for the stale sweep to recover.
func (w *Worker) markFailed(log *slog.Logger, jobID uuid.UUID, code string, cause error) {
	if w.ctx.Err() != nil {
		log.Warn("skipping failure write during shutdown",
			slog.String("error_code", code))
		return
	}

	message := redact.Error(cause)
	if len(message) > maxErrorMessageLen {
		message = message[:maxErrorMessageLen]
	}

	if err := w.jobs.MarkFailed(w.statusCtx(), jobID, code, message); err != nil {
		if errors.Is(err, store.ErrWrongStatus) {
			log.Warn("lost claim before failure write",
				slog.String("error_code", code))
			return
		}
		log.Error("failed to record job failure",
			slog.String("error", redact.Error(err)),
			slog.String("error_code", code))
		return
	}

	log.Warn("job failed",
		slog.String("error_code", code),
		slog.String("error", message))
}

// statusCtx returns a context for status writes that outlives a job's
// processing deadline, bounded by its own short timeout. The cancel is
// intentionally dropped; the timeout reclaims the context.
func (w *Worker) statusCtx() context.Context {
	ctx, _ := context.WithTimeout(context.WithoutCancel(w.ctx), statusWriteTimeout) //nolint:govet
	return ctx
}

// staleClaimMonitor periodically re-queues jobs whose claims outlived
// their worker.
func (w *Worker) staleClaimMonitor() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.StaleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.jobs.ResetStaleClaims(w.ctx, w.cfg.StaleClaimAge); err != nil {
				if w.ctx.Err() == nil {
					w.logger.Error("stale claim sweep failed",
						slog.String("error", redact.Error(err)))
				}
			}
		}
	}
}
