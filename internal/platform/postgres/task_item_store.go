package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/platform/logger"
	"github.com/phrazzld/jot-api/internal/store"
)

// PostgresTaskItemStore implements the store.TaskItemStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskItemStore creates a new PostgreSQL implementation of the
// TaskItemStore interface. If logger is nil, a default logger is used.
func NewPostgresTaskItemStore(db store.DBTX, logger *slog.Logger) *PostgresTaskItemStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_item_store")),
	}
}

// Ensure PostgresTaskItemStore implements store.TaskItemStore interface
var _ store.TaskItemStore = (*PostgresTaskItemStore)(nil)

// WithTx implements store.TaskItemStore.WithTx
func (s *PostgresTaskItemStore) WithTx(tx *sql.Tx) store.TaskItemStore {
	return &PostgresTaskItemStore{
		db:     tx,
		logger: s.logger,
	}
}

// CreateMultiple implements store.TaskItemStore.CreateMultiple
// Callers are expected to run this inside the same transaction that
// commits the owning job's inserted status.
func (s *PostgresTaskItemStore) CreateMultiple(ctx context.Context, items []*domain.TaskItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO task_items (id, owner_id, job_id, title, due_hint, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, item := range items {
		if err := item.Validate(); err != nil {
			log.Warn("task item validation failed during create",
				slog.String("error", err.Error()),
				slog.String("task_item_id", item.ID.String()))
			return err
		}

		_, err := s.db.ExecContext(
			ctx,
			query,
			item.ID,
			item.OwnerID,
			item.JobID,
			item.Title,
			item.DueHint,
			item.Notes,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to create task item",
				slog.String("error", err.Error()),
				slog.String("task_item_id", item.ID.String()),
				slog.String("job_id", item.JobID.String()))
			return MapError(err)
		}
	}

	log.Debug("created task items",
		slog.Int("count", len(items)))
	return nil
}

// ListByJob implements store.TaskItemStore.ListByJob
func (s *PostgresTaskItemStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*domain.TaskItem, error) {
	query := `
		SELECT id, owner_id, job_id, title, due_hint, notes, created_at, updated_at
		FROM task_items
		WHERE job_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanTaskItems(rows)
}

// ListByOwner implements store.TaskItemStore.ListByOwner
func (s *PostgresTaskItemStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	limit, offset int,
) ([]*domain.TaskItem, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, owner_id, job_id, title, due_hint, notes, created_at, updated_at
		FROM task_items
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanTaskItems(rows)
}

// scanTaskItems reads every row into TaskItem values.
func scanTaskItems(rows *sql.Rows) ([]*domain.TaskItem, error) {
	items := make([]*domain.TaskItem, 0)
	for rows.Next() {
		var item domain.TaskItem
		err := rows.Scan(
			&item.ID,
			&item.OwnerID,
			&item.JobID,
			&item.Title,
			&item.DueHint,
			&item.Notes,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, MapError(err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return items, nil
}
