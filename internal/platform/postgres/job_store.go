package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/platform/logger"
	"github.com/phrazzld/jot-api/internal/store"
)

// jobColumns is the column list shared by every job SELECT so scans stay
// in one shape.
const jobColumns = `id, owner_id, storage_key, content_type, size_bytes, status,
	COALESCE(draft_transcript, ''), COALESCE(transcript, ''),
	COALESCE(error_code, ''), COALESCE(error_message, ''),
	created_at, updated_at, queued_at, claimed_at, transcribed_at, inserted_at`

// PostgresJobStore implements the store.JobStore interface using a
// PostgreSQL database as the storage backend. All status transitions are
// conditional updates so concurrent registrar, worker, and parser writes
// cannot silently clobber one another.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the
// JobStore interface. It accepts a database connection or transaction
// managed by the caller. If logger is nil, a default logger is used.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// WithTx implements store.JobStore.WithTx
func (s *PostgresJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &PostgresJobStore{
		db:     tx,
		logger: s.logger,
	}
}

// CreateDraft implements store.JobStore.CreateDraft
func (s *PostgresJobStore) CreateDraft(ctx context.Context, job *domain.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during draft create",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	query := `
		INSERT INTO jobs (id, owner_id, storage_key, content_type, size_bytes,
			status, draft_transcript, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.OwnerID,
		job.StorageKey,
		job.ContentType,
		job.SizeBytes,
		job.Status,
		job.DraftTranscript,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrJobExists
		}
		log.Error("failed to create draft job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return MapError(err)
	}

	return nil
}

// Upsert implements store.JobStore.Upsert
// The write is keyed by job ID and only lands while the existing row, if
// any, is still in draft or queued state. Re-confirmation after a worker
// claim must not regress state, so the conflict update carries a status
// guard; a guarded-out write surfaces as ErrWrongStatus.
func (s *PostgresJobStore) Upsert(ctx context.Context, job *domain.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	query := `
		INSERT INTO jobs (id, owner_id, storage_key, content_type, size_bytes,
			status, draft_transcript, created_at, updated_at, queued_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			storage_key = EXCLUDED.storage_key,
			content_type = EXCLUDED.content_type,
			size_bytes = EXCLUDED.size_bytes,
			status = EXCLUDED.status,
			draft_transcript = COALESCE(EXCLUDED.draft_transcript, jobs.draft_transcript),
			updated_at = EXCLUDED.updated_at,
			queued_at = COALESCE(jobs.queued_at, EXCLUDED.queued_at)
		WHERE jobs.status IN ('draft', 'queued')
			AND jobs.owner_id = EXCLUDED.owner_id
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.OwnerID,
		job.StorageKey,
		job.ContentType,
		job.SizeBytes,
		job.Status,
		job.DraftTranscript,
		job.CreatedAt,
		job.UpdatedAt,
		job.QueuedAt,
	)
	if err != nil {
		log.Error("failed to upsert job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}

	if rowsAffected == 0 {
		log.Debug("upsert rejected, job already progressed past queued",
			slog.String("job_id", job.ID.String()))
		return store.ErrWrongStatus
	}

	return nil
}

// GetByID implements store.JobStore.GetByID
func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrJobNotFound
		}
		return nil, MapError(err)
	}

	return job, nil
}

// ListByOwner implements store.JobStore.ListByOwner
func (s *PostgresJobStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	limit, offset int,
) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		_ = rows.Close()
	}()

	jobs := make([]*domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, MapError(err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return jobs, nil
}

// ClaimNextQueued implements store.JobStore.ClaimNextQueued
// The SKIP LOCKED subquery lets concurrent workers claim different jobs
// without serializing on the oldest row, while the status guard in the
// outer UPDATE keeps the claim itself atomic.
func (s *PostgresJobStore) ClaimNextQueued(ctx context.Context) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	query := `
		UPDATE jobs
		SET status = 'transcribing', claimed_at = $1, updated_at = $1
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'queued'
			ORDER BY queued_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	row := s.db.QueryRowContext(ctx, query, now)
	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNoQueuedJobs
		}
		log.Error("failed to claim next queued job",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("claimed job",
		slog.String("job_id", job.ID.String()))
	return job, nil
}

// Claim implements store.JobStore.Claim
func (s *PostgresJobStore) Claim(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	query := `
		UPDATE jobs
		SET status = 'transcribing', claimed_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'queued'
	`
	return s.conditionalTransition(ctx, id, query, now, id)
}

// MarkTranscribed implements store.JobStore.MarkTranscribed
func (s *PostgresJobStore) MarkTranscribed(ctx context.Context, id uuid.UUID, transcript string) error {
	now := time.Now().UTC()
	query := `
		UPDATE jobs
		SET status = 'transcribed', transcript = $1, transcribed_at = $2, updated_at = $2
		WHERE id = $3 AND status = 'transcribing'
	`
	return s.conditionalTransition(ctx, id, query, transcript, now, id)
}

// MarkInserted implements store.JobStore.MarkInserted
func (s *PostgresJobStore) MarkInserted(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	query := `
		UPDATE jobs
		SET status = 'inserted', inserted_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'transcribed'
	`
	return s.conditionalTransition(ctx, id, query, now, id)
}

// MarkFailed implements store.JobStore.MarkFailed
// Transcript is deliberately untouched so a post-transcription failure
// can be retried at the parse step without re-transcribing.
func (s *PostgresJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	now := time.Now().UTC()
	query := `
		UPDATE jobs
		SET status = 'failed', error_code = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status IN ('transcribing', 'transcribed')
	`
	return s.conditionalTransition(ctx, id, query, errorCode, errorMessage, now, id)
}

// ResetToQueued implements store.JobStore.ResetToQueued
func (s *PostgresJobStore) ResetToQueued(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	query := `
		UPDATE jobs
		SET status = 'queued', error_code = NULL, error_message = NULL,
			claimed_at = NULL, queued_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'failed'
	`
	return s.conditionalTransition(ctx, id, query, now, id)
}

// ResetStaleClaims implements store.JobStore.ResetStaleClaims
// A claim with no matching worker heartbeat mechanism goes stale when the
// process dies; re-queuing after a generous age bound keeps those jobs
// from being stuck forever.
func (s *PostgresJobStore) ResetStaleClaims(
	ctx context.Context,
	olderThan time.Duration,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	cutoff := now.Add(-olderThan)
	query := `
		UPDATE jobs
		SET status = 'queued', claimed_at = NULL, updated_at = $1
		WHERE status = 'transcribing' AND claimed_at < $2
	`

	result, err := s.db.ExecContext(ctx, query, now, cutoff)
	if err != nil {
		log.Error("failed to reset stale claims",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}

	if rowsAffected > 0 {
		log.Warn("reset stale job claims",
			slog.Int64("count", rowsAffected),
			slog.Duration("older_than", olderThan))
	}

	return rowsAffected, nil
}

// conditionalTransition runs a guarded status update and reports a zero
// row count as ErrWrongStatus so callers can tell a lost race from a
// store failure.
func (s *PostgresJobStore) conditionalTransition(
	ctx context.Context,
	id uuid.UUID,
	query string,
	args ...any,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to execute job status transition",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}

	if rowsAffected == 0 {
		log.Debug("job status transition matched no rows",
			slog.String("job_id", id.String()))
		return store.ErrWrongStatus
	}

	return nil
}

// rowScanner covers *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob reads one job row in jobColumns order.
func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var queuedAt, claimedAt, transcribedAt, insertedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.StorageKey,
		&job.ContentType,
		&job.SizeBytes,
		&job.Status,
		&job.DraftTranscript,
		&job.Transcript,
		&job.ErrorCode,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&queuedAt,
		&claimedAt,
		&transcribedAt,
		&insertedAt,
	)
	if err != nil {
		return nil, err
	}

	if queuedAt.Valid {
		job.QueuedAt = &queuedAt.Time
	}
	if claimedAt.Valid {
		job.ClaimedAt = &claimedAt.Time
	}
	if transcribedAt.Valid {
		job.TranscribedAt = &transcribedAt.Time
	}
	if insertedAt.Valid {
		job.InsertedAt = &insertedAt.Time
	}

	return &job, nil
}
