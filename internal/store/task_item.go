package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
)

// TaskItemStore defines the interface for extracted-task persistence.
// Version: 1.0
type TaskItemStore interface {
	// CreateMultiple saves a batch of task items. Callers run it inside
	// the same transaction that commits the owning job's inserted status
	// so a partial failure leaves neither tasks nor a misleading status.
	CreateMultiple(ctx context.Context, items []*domain.TaskItem) error

	// ListByJob retrieves the task items extracted from the given job.
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*domain.TaskItem, error)

	// ListByOwner retrieves the owner's task items, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.TaskItem, error)

	// WithTx returns a new TaskItemStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskItemStore
}
