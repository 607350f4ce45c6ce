package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for TaskItem
var (
	ErrEmptyTaskItemID      = errors.New("task item ID cannot be empty")
	ErrEmptyTaskItemOwnerID = errors.New("task item owner ID cannot be empty")
	ErrEmptyTaskItemJobID   = errors.New("task item job ID cannot be empty")
	ErrEmptyTaskItemTitle   = errors.New("task item title cannot be empty")
)

// TaskItem is one structured task extracted from a job's transcript and
// written into the application task store. JobID links the item back to
// the job that produced it, which also serves as the idempotency anchor
// for re-processing.
type TaskItem struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	JobID     uuid.UUID `json:"job_id"`
	Title     string    `json:"title"`
	DueHint   string    `json:"due_hint,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTaskItem creates a new TaskItem owned by the given user, produced
// from the given job. Returns an error if validation fails.
func NewTaskItem(ownerID, jobID uuid.UUID, title, dueHint, notes string) (*TaskItem, error) {
	now := time.Now().UTC()
	item := &TaskItem{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		JobID:     jobID,
		Title:     title,
		DueHint:   dueHint,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the TaskItem has valid data.
func (t *TaskItem) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskItemID
	}

	if t.OwnerID == uuid.Nil {
		return ErrEmptyTaskItemOwnerID
	}

	if t.JobID == uuid.Nil {
		return ErrEmptyTaskItemJobID
	}

	if t.Title == "" {
		return ErrEmptyTaskItemTitle
	}

	return nil
}
