package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/store"
)

// MemoryJobStore is a thread-safe in-memory implementation of
// store.JobStore. Its claim transitions have the same winner-takes-all
// semantics as the SQL implementation, so concurrency tests against it
// are meaningful.
type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job
}

// NewMemoryJobStore creates an empty MemoryJobStore.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[uuid.UUID]*domain.Job),
	}
}

// Ensure MemoryJobStore implements store.JobStore
var _ store.JobStore = (*MemoryJobStore)(nil)

// WithTx implements store.JobStore.WithTx. The in-memory store has no
// transactions; it returns itself.
func (s *MemoryJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return s
}

// CreateDraft implements store.JobStore.CreateDraft
func (s *MemoryJobStore) CreateDraft(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return store.ErrJobExists
	}

	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// Upsert implements store.JobStore.Upsert
func (s *MemoryJobStore) Upsert(ctx context.Context, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.jobs[job.ID]
	if exists {
		if existing.OwnerID != job.OwnerID {
			return store.ErrWrongStatus
		}
		if existing.Status != domain.JobStatusDraft && existing.Status != domain.JobStatusQueued {
			return store.ErrWrongStatus
		}
	}

	saved := cloneJob(job)
	if exists && existing.QueuedAt != nil {
		saved.QueuedAt = existing.QueuedAt
	}
	s.jobs[job.ID] = saved
	return nil
}

// GetByID implements store.JobStore.GetByID
func (s *MemoryJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	return cloneJob(job), nil
}

// ListByOwner implements store.JobStore.ListByOwner
func (s *MemoryJobStore) ListByOwner(
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

	s.mu.Lock()
	defer s.mu.Unlock()

	owned := make([]*domain.Job, 0)
	for _, job := range s.jobs {
		if job.OwnerID == ownerID {
			owned = append(owned, cloneJob(job))
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if offset >= len(owned) {
		return []*domain.Job{}, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

// ClaimNextQueued implements store.JobStore.ClaimNextQueued
func (s *MemoryJobStore) ClaimNextQueued(ctx context.Context) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var oldest *domain.Job
	for _, job := range s.jobs {
		if job.Status != domain.JobStatusQueued {
			continue
		}
		if oldest == nil || queuedBefore(job, oldest) {
			oldest = job
		}
	}

	if oldest == nil {
		return nil, store.ErrNoQueuedJobs
	}

	now := time.Now().UTC()
	oldest.Status = domain.JobStatusTranscribing
	oldest.ClaimedAt = &now
	oldest.UpdatedAt = now
	return cloneJob(oldest), nil
}

// Claim implements store.JobStore.Claim
func (s *MemoryJobStore) Claim(ctx context.Context, id uuid.UUID) error {
	return s.transition(id, domain.JobStatusTranscribing, func(job *domain.Job) bool {
		if job.Status != domain.JobStatusQueued {
			return false
		}
		now := time.Now().UTC()
		job.ClaimedAt = &now
		return true
	})
}

// MarkTranscribed implements store.JobStore.MarkTranscribed
func (s *MemoryJobStore) MarkTranscribed(ctx context.Context, id uuid.UUID, transcript string) error {
	return s.transition(id, domain.JobStatusTranscribed, func(job *domain.Job) bool {
		if job.Status != domain.JobStatusTranscribing {
			return false
		}
		now := time.Now().UTC()
		job.Transcript = transcript
		job.TranscribedAt = &now
		return true
	})
}

// MarkInserted implements store.JobStore.MarkInserted
func (s *MemoryJobStore) MarkInserted(ctx context.Context, id uuid.UUID) error {
	return s.transition(id, domain.JobStatusInserted, func(job *domain.Job) bool {
		if job.Status != domain.JobStatusTranscribed {
			return false
		}
		now := time.Now().UTC()
		job.InsertedAt = &now
		return true
	})
}

// MarkFailed implements store.JobStore.MarkFailed
func (s *MemoryJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	return s.transition(id, domain.JobStatusFailed, func(job *domain.Job) bool {
		if job.Status != domain.JobStatusTranscribing && job.Status != domain.JobStatusTranscribed {
			return false
		}
		job.ErrorCode = errorCode
		job.ErrorMessage = errorMessage
		return true
	})
}

// ResetToQueued implements store.JobStore.ResetToQueued
func (s *MemoryJobStore) ResetToQueued(ctx context.Context, id uuid.UUID) error {
	return s.transition(id, domain.JobStatusQueued, func(job *domain.Job) bool {
		if job.Status != domain.JobStatusFailed {
			return false
		}
		now := time.Now().UTC()
		job.ErrorCode = ""
		job.ErrorMessage = ""
		job.ClaimedAt = nil
		job.QueuedAt = &now
		return true
	})
}

// ResetStaleClaims implements store.JobStore.ResetStaleClaims
func (s *MemoryJobStore) ResetStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var reset int64
	for _, job := range s.jobs {
		if job.Status == domain.JobStatusTranscribing &&
			job.ClaimedAt != nil && job.ClaimedAt.Before(cutoff) {
			job.Status = domain.JobStatusQueued
			job.ClaimedAt = nil
			job.UpdatedAt = time.Now().UTC()
			reset++
		}
	}
	return reset, nil
}

// transition runs a guarded status update under the lock, mirroring the
// SQL implementation's zero-rows ErrWrongStatus contract.
func (s *MemoryJobStore) transition(
	id uuid.UUID,
	to domain.JobStatus,
	apply func(job *domain.Job) bool,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return store.ErrWrongStatus
	}

	if !apply(job) {
		return store.ErrWrongStatus
	}

	job.Status = to
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func queuedBefore(a, b *domain.Job) bool {
	switch {
	case a.QueuedAt == nil:
		return false
	case b.QueuedAt == nil:
		return true
	default:
		return a.QueuedAt.Before(*b.QueuedAt)
	}
}

func cloneJob(job *domain.Job) *domain.Job {
	clone := *job
	return &clone
}
