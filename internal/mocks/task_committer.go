package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
)

// MemoryTaskCommitter implements worker.TaskCommitter against the
// in-memory stores. It mirrors the transactional service's contract:
// nothing is written when the job is no longer in the transcribed state.
type MemoryTaskCommitter struct {
	Jobs  *MemoryJobStore
	Tasks *MemoryTaskItemStore

	// CommitTasksFn allows test cases to override the behavior entirely.
	CommitTasksFn func(ctx context.Context, jobID uuid.UUID, items []*domain.TaskItem) error
}

// CommitTasks implements the worker.TaskCommitter interface
func (m *MemoryTaskCommitter) CommitTasks(
	ctx context.Context,
	jobID uuid.UUID,
	items []*domain.TaskItem,
) error {
	if m.CommitTasksFn != nil {
		return m.CommitTasksFn(ctx, jobID, items)
	}

	// Status transition first: it is the guard. The in-memory stores
	// have no transactions, so checking before writing keeps the same
	// no-duplicates outcome.
	if err := m.Jobs.MarkInserted(ctx, jobID); err != nil {
		return err
	}

	if len(items) > 0 {
		if err := m.Tasks.CreateMultiple(ctx, items); err != nil {
			return err
		}
	}

	return nil
}
