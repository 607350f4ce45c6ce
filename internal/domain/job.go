package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the processing state of a voice-note job.
type JobStatus string

// Possible job status values
const (
	// JobStatusDraft marks a job whose storage key has been reserved but
	// whose audio upload has not been confirmed. Draft jobs are invisible
	// to the worker.
	JobStatusDraft JobStatus = "draft"

	// JobStatusQueued marks a job whose upload has been confirmed and that
	// is waiting for a worker claim.
	JobStatusQueued JobStatus = "queued"

	// JobStatusTranscribing marks a job claimed by a worker. At most one
	// worker holds a claim on a job at any time.
	JobStatusTranscribing JobStatus = "transcribing"

	// JobStatusTranscribed marks a job with a server transcript, waiting
	// for task extraction.
	JobStatusTranscribed JobStatus = "transcribed"

	// JobStatusInserted marks a terminally successful job whose extracted
	// tasks have been committed.
	JobStatusInserted JobStatus = "inserted"

	// JobStatusFailed marks a job that failed at some stage. Failed jobs
	// carry an error code and message and can be reset to queued.
	JobStatusFailed JobStatus = "failed"
)

// Error codes persisted on failed jobs.
const (
	ErrorCodeBlobMissing         = "blob_missing"
	ErrorCodeDownloadFailed      = "download_failed"
	ErrorCodeTimeout             = "timeout"
	ErrorCodeTranscriptionFailed = "transcription_failed"
	ErrorCodeExtractionFailed    = "extraction_failed"
	ErrorCodeStoreFailure        = "store_failure"
)

// Common validation errors for Job
var (
	ErrEmptyJobID         = errors.New("job ID cannot be empty")
	ErrEmptyJobOwnerID    = errors.New("job owner ID cannot be empty")
	ErrEmptyStorageKey    = errors.New("job storage key cannot be empty")
	ErrInvalidJobStatus   = errors.New("invalid job status")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrTranscriptRequired = errors.New("transcript required for this status")
)

// Job is one audio-to-task processing unit. The row in the jobs table is
// the single source of truth for pipeline state; every status mutation is
// a conditional whole-row update keyed on the job ID and the expected
// prior status.
type Job struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`

	StorageKey  string `json:"storage_key"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`

	Status JobStatus `json:"status"`

	// DraftTranscript is a client-supplied best-effort transcript. The
	// worker never writes it.
	DraftTranscript string `json:"draft_transcript,omitempty"`

	// Transcript is the server-produced transcript. Written once by the
	// worker; re-processing writes a new value only after an explicit
	// reset to queued.
	Transcript string `json:"transcript,omitempty"`

	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	QueuedAt      *time.Time `json:"queued_at,omitempty"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`
	TranscribedAt *time.Time `json:"transcribed_at,omitempty"`
	InsertedAt    *time.Time `json:"inserted_at,omitempty"`
}

// NewDraftJob creates a new Job in draft state. The ID is supplied by the
// caller because the storage key is derived from it before the row exists.
// Draft jobs reserve a storage key but make no promise that the blob exists.
func NewDraftJob(id, ownerID uuid.UUID, storageKey, contentType string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:          id,
		OwnerID:     ownerID,
		StorageKey:  storageKey,
		ContentType: contentType,
		Status:      JobStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks structural invariants on the job.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if j.OwnerID == uuid.Nil {
		return ErrEmptyJobOwnerID
	}

	if j.StorageKey == "" {
		return ErrEmptyStorageKey
	}

	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	// Transcript presence tracks the state machine: transcribed and
	// inserted jobs must carry one.
	if (j.Status == JobStatusTranscribed || j.Status == JobStatusInserted) && j.TranscribedAt == nil {
		return ErrTranscriptRequired
	}

	return nil
}

// CanTransition reports whether moving from the job's current status to the
// target status is a legal state machine edge.
func (j *Job) CanTransition(to JobStatus) bool {
	switch j.Status {
	case JobStatusDraft:
		return to == JobStatusQueued
	case JobStatusQueued:
		return to == JobStatusTranscribing
	case JobStatusTranscribing:
		return to == JobStatusTranscribed || to == JobStatusFailed
	case JobStatusTranscribed:
		return to == JobStatusInserted || to == JobStatusFailed
	case JobStatusFailed:
		return to == JobStatusQueued
	default:
		return false
	}
}

// IsTerminal reports whether the job has reached a state the worker will
// not act on without external intervention.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusInserted || j.Status == JobStatusFailed
}

// HasTranscript reports whether the worker has produced a transcript for
// this job. A failed job may retain a transcript when the failure happened
// after transcription.
func (j *Job) HasTranscript() bool {
	return j.Transcript != ""
}

// isValidJobStatus checks if the given status is a valid JobStatus.
func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusDraft, JobStatusQueued, JobStatusTranscribing,
		JobStatusTranscribed, JobStatusInserted, JobStatusFailed:
		return true
	default:
		return false
	}
}
