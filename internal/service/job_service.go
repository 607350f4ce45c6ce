package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/platform/logger"
	"github.com/phrazzld/jot-api/internal/store"
)

// ConfirmUploadParams carries the client-supplied metadata accompanying an
// upload confirmation. StorageKey is required; the rest is optional and
// merged onto the job row.
type ConfirmUploadParams struct {
	StorageKey      string
	ContentType     string
	SizeBytes       int64
	DraftTranscript string
}

// JobService registers confirmed uploads and exposes job reads. The
// confirmation path is the only one that makes a job visible to the
// worker.
type JobService interface {
	// ConfirmUpload upserts the job row keyed by jobID and flips it to
	// queued, stamping queued_at. Calling it twice before a worker claim
	// is safe; once the job has progressed past queued it returns
	// ErrJobAlreadyProcessed rather than regressing state.
	ConfirmUpload(ctx context.Context, ownerID, jobID uuid.UUID, params ConfirmUploadParams) (*domain.Job, error)

	// GetJob retrieves a job owned by ownerID. A job owned by someone
	// else is reported as store.ErrJobNotFound, not as a permission
	// failure.
	GetJob(ctx context.Context, ownerID, jobID uuid.UUID) (*domain.Job, error)

	// ListJobs retrieves the owner's jobs, newest first.
	ListJobs(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Job, error)

	// RetryJob resets a failed job to queued, clearing its error fields
	// so the worker picks it up again. Returns ErrJobNotRetryable if the
	// job is not failed.
	RetryJob(ctx context.Context, ownerID, jobID uuid.UUID) (*domain.Job, error)
}

// jobServiceImpl implements the JobService interface.
type jobServiceImpl struct {
	jobStore store.JobStore
	logger   *slog.Logger
}

// NewJobService creates a new JobService.
// It returns an error if any of the required dependencies are nil.
func NewJobService(jobStore store.JobStore, logger *slog.Logger) (JobService, error) {
	if jobStore == nil {
		return nil, NewJobServiceError("init", "jobStore cannot be nil", domain.ErrValidation)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &jobServiceImpl{
		jobStore: jobStore,
		logger:   logger.With(slog.String("component", "job_service")),
	}, nil
}

// ConfirmUpload implements JobService.ConfirmUpload.
func (s *jobServiceImpl) ConfirmUpload(
	ctx context.Context,
	ownerID, jobID uuid.UUID,
	params ConfirmUploadParams,
) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if jobID == uuid.Nil {
		return nil, NewJobServiceError("confirm_upload", "job ID is required", domain.ErrValidation)
	}
	if params.StorageKey == "" {
		return nil, NewJobServiceError("confirm_upload", "storage key is required", ErrMissingStorageKey)
	}

	now := time.Now().UTC()

	existing, err := s.jobStore.GetByID(ctx, jobID)
	switch {
	case err == nil:
		// The caller's proven identity must match the row's owner; a
		// mismatch is indistinguishable from a missing job.
		if existing.OwnerID != ownerID {
			return nil, NewJobServiceError("confirm_upload", "job not found", store.ErrJobNotFound)
		}
		if existing.Status != domain.JobStatusDraft && existing.Status != domain.JobStatusQueued {
			return nil, NewJobServiceError(
				"confirm_upload", "job has already been picked up", ErrJobAlreadyProcessed)
		}
	case errors.Is(err, store.ErrJobNotFound):
		// The coordinator may defer row creation entirely; confirmation
		// then creates the row outright.
		existing = nil
	default:
		log.Error("failed to load job for confirmation",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return nil, NewJobServiceError("confirm_upload", "failed to load job", err)
	}

	job := &domain.Job{
		ID:              jobID,
		OwnerID:         ownerID,
		StorageKey:      params.StorageKey,
		ContentType:     params.ContentType,
		SizeBytes:       params.SizeBytes,
		DraftTranscript: params.DraftTranscript,
		Status:          domain.JobStatusQueued,
		CreatedAt:       now,
		UpdatedAt:       now,
		QueuedAt:        &now,
	}
	if existing != nil {
		job.CreatedAt = existing.CreatedAt
		if job.ContentType == "" {
			job.ContentType = existing.ContentType
		}
		if job.SizeBytes == 0 {
			job.SizeBytes = existing.SizeBytes
		}
		if job.DraftTranscript == "" {
			job.DraftTranscript = existing.DraftTranscript
		}
		// Re-confirmation before a claim is a metadata correction: keep
		// the original queue position.
		if existing.QueuedAt != nil {
			job.QueuedAt = existing.QueuedAt
		}
	}

	if err := job.Validate(); err != nil {
		return nil, NewJobServiceError("confirm_upload", "invalid job", err)
	}

	if err := s.jobStore.Upsert(ctx, job); err != nil {
		if errors.Is(err, store.ErrWrongStatus) {
			// Lost a race with a worker claim between the read and the
			// write; the conditional upsert refuses to regress state.
			return nil, NewJobServiceError(
				"confirm_upload", "job has already been picked up", ErrJobAlreadyProcessed)
		}
		log.Error("failed to upsert queued job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return nil, NewJobServiceError("confirm_upload", "failed to save job", err)
	}

	log.Info("job queued for processing",
		slog.String("job_id", jobID.String()),
		slog.String("storage_key", job.StorageKey))

	return job, nil
}

// GetJob implements JobService.GetJob.
func (s *jobServiceImpl) GetJob(ctx context.Context, ownerID, jobID uuid.UUID) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	job, err := s.jobStore.GetByID(ctx, jobID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewJobServiceError("get_job", "job not found", store.ErrJobNotFound)
		}
		log.Error("failed to retrieve job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return nil, NewJobServiceError("get_job", "failed to retrieve job", err)
	}

	if job.OwnerID != ownerID {
		return nil, NewJobServiceError("get_job", "job not found", store.ErrJobNotFound)
	}

	return job, nil
}

// ListJobs implements JobService.ListJobs.
func (s *jobServiceImpl) ListJobs(
	ctx context.Context,
	ownerID uuid.UUID,
	limit, offset int,
) ([]*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	jobs, err := s.jobStore.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		log.Error("failed to list jobs",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, NewJobServiceError("list_jobs", "failed to list jobs", err)
	}

	return jobs, nil
}

// RetryJob implements JobService.RetryJob.
func (s *jobServiceImpl) RetryJob(ctx context.Context, ownerID, jobID uuid.UUID) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	job, err := s.GetJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != domain.JobStatusFailed {
		return nil, NewJobServiceError("retry_job", "job is not failed", ErrJobNotRetryable)
	}

	if err := s.jobStore.ResetToQueued(ctx, jobID); err != nil {
		if errors.Is(err, store.ErrWrongStatus) {
			return nil, NewJobServiceError("retry_job", "job is not failed", ErrJobNotRetryable)
		}
		log.Error("failed to reset job to queued",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return nil, NewJobServiceError("retry_job", "failed to reset job", err)
	}

	log.Info("failed job reset to queued",
		slog.String("job_id", jobID.String()))

	return s.GetJob(ctx, ownerID, jobID)
}
