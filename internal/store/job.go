package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
)

// JobStore defines the interface for job persistence. The jobs table is
// the source of truth for pipeline state; every status mutation is a
// conditional update keyed on the job ID and the expected prior status,
// so concurrent actors (registrar, workers, parser) cannot lose updates.
// Version: 1.0
type JobStore interface {
	// CreateDraft saves a new draft job. Draft rows reserve identifiers
	// for uploads in flight and are never visible to the worker.
	// Returns ErrJobExists if a row with the same ID already exists.
	CreateDraft(ctx context.Context, job *domain.Job) error

	// Upsert writes the job row keyed by its ID, overwriting an existing
	// draft or queued row. Used by the registrar to flip a job to queued
	// and by retry re-submission. The write is rejected with
	// ErrWrongStatus if the existing row has progressed past queued.
	Upsert(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by its unique ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// ListByOwner retrieves the owner's jobs, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Job, error)

	// ClaimNextQueued atomically claims the oldest queued job by moving it
	// to transcribing and stamping claimed_at. Exactly one of any number
	// of concurrent callers can claim a given job. Returns ErrNoQueuedJobs
	// when nothing is waiting.
	ClaimNextQueued(ctx context.Context) (*domain.Job, error)

	// Claim atomically transitions the given job from queued to
	// transcribing. Returns ErrWrongStatus if the job is not queued,
	// which is how a losing concurrent claimant observes defeat.
	Claim(ctx context.Context, id uuid.UUID) error

	// MarkTranscribed records the server transcript and moves the job
	// from transcribing to transcribed, stamping transcribed_at.
	// Returns ErrWrongStatus if the job is not in transcribing state.
	MarkTranscribed(ctx context.Context, id uuid.UUID, transcript string) error

	// MarkInserted moves the job from transcribed to inserted, stamping
	// inserted_at. Returns ErrWrongStatus if the job is not transcribed.
	MarkInserted(ctx context.Context, id uuid.UUID) error

	// MarkFailed moves the job from its current non-terminal processing
	// state (transcribing or transcribed) to failed, recording the error
	// code and message. The transcript, if any, is retained.
	MarkFailed(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error

	// ResetToQueued moves a failed job back to queued, clearing its error
	// fields so the worker picks it up again. Returns ErrWrongStatus if
	// the job is not failed.
	ResetToQueued(ctx context.Context, id uuid.UUID) error

	// ResetStaleClaims re-queues jobs that have sat in transcribing
	// longer than olderThan, which happens when a worker dies mid-claim.
	// Returns the number of jobs reset.
	ResetStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error)

	// WithTx returns a new JobStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) JobStore
}
