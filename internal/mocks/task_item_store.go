package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/store"
)

// MemoryTaskItemStore is a thread-safe in-memory implementation of
// store.TaskItemStore.
type MemoryTaskItemStore struct {
	mu    sync.Mutex
	items []*domain.TaskItem

	// CreateMultipleErr, when set, is returned by CreateMultiple without
	// saving anything. Used to simulate task-store write failures.
	CreateMultipleErr error
}

// NewMemoryTaskItemStore creates an empty MemoryTaskItemStore.
func NewMemoryTaskItemStore() *MemoryTaskItemStore {
	return &MemoryTaskItemStore{}
}

// Ensure MemoryTaskItemStore implements store.TaskItemStore
var _ store.TaskItemStore = (*MemoryTaskItemStore)(nil)

// WithTx implements store.TaskItemStore.WithTx. The in-memory store has
// no transactions; it returns itself.
func (s *MemoryTaskItemStore) WithTx(tx *sql.Tx) store.TaskItemStore {
	return s
}

// CreateMultiple implements store.TaskItemStore.CreateMultiple
func (s *MemoryTaskItemStore) CreateMultiple(ctx context.Context, items []*domain.TaskItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateMultipleErr != nil {
		return s.CreateMultipleErr
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}

	for _, item := range items {
		clone := *item
		s.items = append(s.items, &clone)
	}
	return nil
}

// ListByJob implements store.TaskItemStore.ListByJob
func (s *MemoryTaskItemStore) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*domain.TaskItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*domain.TaskItem, 0)
	for _, item := range s.items {
		if item.JobID == jobID {
			clone := *item
			matched = append(matched, &clone)
		}
	}
	return matched, nil
}

// ListByOwner implements store.TaskItemStore.ListByOwner
func (s *MemoryTaskItemStore) ListByOwner(
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

	s.mu.Lock()
	defer s.mu.Unlock()

	owned := make([]*domain.TaskItem, 0)
	for _, item := range s.items {
		if item.OwnerID == ownerID {
			clone := *item
			owned = append(owned, &clone)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if offset >= len(owned) {
		return []*domain.TaskItem{}, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

// Count returns the total number of stored task items.
func (s *MemoryTaskItemStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
