package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/platform/logger"
	"github.com/phrazzld/jot-api/internal/store"
)

// TaskCommitService commits the outcome of task extraction: the extracted
// task rows and the job's inserted status are written in one transaction,
// so a partial failure leaves neither orphan tasks nor a misleading job
// status. Re-running the commit on an already-inserted job fails the
// status transition and therefore writes no duplicate rows.
type TaskCommitService interface {
	// CommitTasks saves the extracted task items and marks the job
	// inserted atomically. Zero items is valid: the job still moves to
	// inserted. Returns store.ErrWrongStatus if the job is no longer in
	// the transcribed state.
	CommitTasks(ctx context.Context, jobID uuid.UUID, items []*domain.TaskItem) error
}

// taskCommitServiceImpl implements the TaskCommitService interface.
type taskCommitServiceImpl struct {
	db        *sql.DB
	jobStore  store.JobStore
	taskStore store.TaskItemStore
	logger    *slog.Logger
}

// NewTaskCommitService creates a new TaskCommitService.
// It returns an error if any of the required dependencies are nil.
func NewTaskCommitService(
	db *sql.DB,
	jobStore store.JobStore,
	taskStore store.TaskItemStore,
	logger *slog.Logger,
) (TaskCommitService, error) {
	if db == nil {
		return nil, NewJobServiceError("init", "db cannot be nil", domain.ErrValidation)
	}
	if jobStore == nil {
		return nil, NewJobServiceError("init", "jobStore cannot be nil", domain.ErrValidation)
	}
	if taskStore == nil {
		return nil, NewJobServiceError("init", "taskStore cannot be nil", domain.ErrValidation)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &taskCommitServiceImpl{
		db:        db,
		jobStore:  jobStore,
		taskStore: taskStore,
		logger:    logger.With(slog.String("component", "task_commit_service")),
	}, nil
}

// CommitTasks implements TaskCommitService.CommitTasks.
func (s *taskCommitServiceImpl) CommitTasks(
	ctx context.Context,
	jobID uuid.UUID,
	items []*domain.TaskItem,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txJobs := s.jobStore.WithTx(tx)
		txTasks := s.taskStore.WithTx(tx)

		if len(items) > 0 {
			if err := txTasks.CreateMultiple(ctx, items); err != nil {
				return err
			}
		}

		// The status transition guards the whole commit: if the job is
		// not transcribed anymore, the task writes above roll back too.
		return txJobs.MarkInserted(ctx, jobID)
	})
	if err != nil {
		log.Error("failed to commit extracted tasks",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()),
			slog.Int("task_count", len(items)))
		return err
	}

	log.Info("committed extracted tasks",
		slog.String("job_id", jobID.String()),
		slog.Int("task_count", len(items)))

	return nil
}
