// Package service contains the application services that orchestrate the
// voice-note job pipeline: issuing upload grants, registering confirmed
// uploads, reading job state, and committing extracted tasks.
package service

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the job services. Handlers map these onto
// HTTP status codes.
var (
	// ErrJobAlreadyProcessed is returned when a confirmation or metadata
	// correction arrives after the job has progressed past queued. State
	// never regresses as a side effect of re-confirmation.
	ErrJobAlreadyProcessed = errors.New("job has already been processed")

	// ErrJobNotRetryable is returned when a retry is requested for a job
	// that is not in the failed state.
	ErrJobNotRetryable = errors.New("job is not in a retryable state")

	// ErrMissingStorageKey is returned when a confirmation omits the
	// storage key. Nothing is persisted.
	ErrMissingStorageKey = errors.New("storage key is required")
)

// JobServiceError is a custom error type for job pipeline service errors.
type JobServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for JobServiceError.
func (e *JobServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("job service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *JobServiceError) Unwrap() error {
	return e.Err
}

// NewJobServiceError creates a new JobServiceError.
func NewJobServiceError(operation, message string, err error) *JobServiceError {
	return &JobServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
