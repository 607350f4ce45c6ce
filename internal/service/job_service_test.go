package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/mocks"
	"github.com/phrazzld/jot-api/internal/service"
	"github.com/phrazzld/jot-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJobService(t *testing.T, jobs *mocks.MemoryJobStore) service.JobService {
	t.Helper()
	svc, err := service.NewJobService(jobs, nil)
	require.NoError(t, err)
	return svc
}

func seedDraft(t *testing.T, jobs *mocks.MemoryJobStore, ownerID uuid.UUID) *domain.Job {
	t.Helper()
	jobID := uuid.New()
	draft, err := domain.NewDraftJob(jobID, ownerID, "audio/"+ownerID.String()+"/"+jobID.String()+".wav", "audio/wav")
	require.NoError(t, err)
	require.NoError(t, jobs.CreateDraft(context.Background(), draft))
	return draft
}

func TestConfirmUpload(t *testing.T) {
	t.Parallel()

	t.Run("queues a draft job", func(t *testing.T) {
		t.Parallel()

		jobs := mocks.NewMemoryJobStore()
		svc := newJobService(t, jobs)
		ownerID := uuid.New()
		draft := seedDraft(t, jobs, ownerID)

		job, err := svc.ConfirmUpload(context.Background(), ownerID, draft.ID, service.ConfirmUploadParams{
			StorageKey: draft.StorageKey,
			SizeBytes:  2048,
		})
		require.NoError(t, err)

		assert.Equal(t, domain.JobStatusQueued, job.Status)
		assert.NotNil(t, job.QueuedAt)
		assert.Equal(t, int64(2048), job.SizeBytes)
		// Metadata set at creation survives confirmation.
		assert.Equal(t, "audio/wav", job.ContentType)
	})

	t.Run("creates the row when the coordinator deferred it", func(t *testing.T) {
		t.Parallel()

		jobs := mocks.NewMemoryJobStore()
		svc := newJobService(t, jobs)
		ownerID := uuid.New()
		jobID := uuid.New()

		job, err := svc.ConfirmUpload(context.Background(), ownerID, jobID, service.ConfirmUploadParams{
			StorageKey:  "audio/" + ownerID.String() + "/" + jobID.String() + ".m4a",
			ContentType: "audio/mp4",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusQueued, job.Status)

		stored, err := jobs.GetByID(context.Background(), jobID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusQueued, stored.Status)
	})

	t.Run("idempotent before a worker claim", func(t *testing.T) {
		t.Parallel()

		jobs := mocks.NewMemoryJobStore()
		svc := newJobService(t, jobs)
		ownerID := uuid.New()
		draft := seedDraft(t, jobs, ownerID)

		params := service.ConfirmUploadParams{
			StorageKey:      draft.StorageKey,
			SizeBytes:       1024,
			DraftTranscript: "buy milk tomorrow",
		}

		first, err := svc.ConfirmUpload(context.Background(), ownerID, draft.ID, params)
		require.NoError(t, err)
		second, err := svc.ConfirmUpload(context.Background(), ownerID, draft.ID, params)
		require.NoError(t, err)

		assert.Equal(t, first.Status, second.Status)
		assert.Equal(t, first.StorageKey, second.StorageKey)
		assert.Equal(t, first.DraftTranscript, second.DraftTranscript)
		// Re-confirmation keeps the original queue position.
		assert.Equal(t, first.QueuedAt.Unix(), second.QueuedAt.Unix())
	})

	t.Run("does not regress a claimed job", func(t *testing.T) {
		t.Parallel()

		jobs := mocks.NewMemoryJobStore()
		svc := newJobService(t, jobs)
		ownerID := uuid.New()
		draft := seedDraft(t, jobs, ownerID)

		_, err := svc.ConfirmUpload(context.Background(), ownerID, draft.ID, service.ConfirmUploadParams{
			StorageKey: draft.StorageKey,
		})
		require.NoError(t, err)

		// A worker claims the job.
		claimed, err := jobs.ClaimNextQueued(context.Background())
		require.NoError(t, err)
		require.Equal(t, draft.ID, claimed.ID)

		_, err = svc.ConfirmUpload(context.Background(), ownerID, draft.ID, service.ConfirmUploadParams{
			StorageKey: draft.StorageKey,
		})
		assert.ErrorIs(t, err, service.ErrJobAlreadyProcessed)

		stored, err := jobs.GetByID(context.Background(), draft.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusTranscribing, stored.Status)
	})

	t.Run("rejects missing storage key", func(t *testing.T) {
		t.Parallel()

		svc := newJobService(t, mocks.NewMemoryJobStore())
		_, err := svc.ConfirmUpload(context.Background(), uuid.New(), uuid.New(), service.ConfirmUploadParams{})
		assert.ErrorIs(t, err, service.ErrMissingStorageKey)
	})

	t.Run("foreign job reads as not found", func(t *testing.T) {
		t.Parallel()

		jobs := mocks.NewMemoryJobStore()
		svc := newJobService(t, jobs)
		draft := seedDraft(t, jobs, uuid.New())

		_, err := svc.ConfirmUpload(context.Background(), uuid.New(), draft.ID, service.ConfirmUploadParams{
			StorageKey: draft.StorageKey,
		})
		assert.ErrorIs(t, err, store.ErrJobNotFound)
	})
}

func TestGetJob(t *testing.T) {
	t.Parallel()

	jobs := mocks.NewMemoryJobStore()
	svc := newJobService(t, jobs)
	ownerID := uuid.New()
	draft := seedDraft(t, jobs, ownerID)

	t.Run("owner reads own job", func(t *testing.T) {
		t.Parallel()

		job, err := svc.GetJob(context.Background(), ownerID, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, draft.ID, job.ID)
	})

	t.Run("foreign owner gets not found", func(t *testing.T) {
		t.Parallel()

		_, err := svc.GetJob(context.Background(), uuid.New(), draft.ID)
		assert.ErrorIs(t, err, store.ErrJobNotFound)
	})

	t.Run("unknown job gets not found", func(t *testing.T) {
		t.Parallel()

		_, err := svc.GetJob(context.Background(), ownerID, uuid.New())
		assert.ErrorIs(t, err, store.ErrJobNotFound)
	})
}

func TestRetryJob(t *testing.T) {
	t.Parallel()

	t.Run("resets a failed job and clears error fields", func(t *testing.T) {
		t.Parallel()

		jobs := mocks.NewMemoryJobStore()
		svc := newJobService(t, jobs)
		ownerID := uuid.New()
		draft := seedDraft(t, jobs, ownerID)

		_, err := svc.ConfirmUpload(context.Background(), ownerID, draft.ID, service.ConfirmUploadParams{
			StorageKey: draft.StorageKey,
		})
		require.NoError(t, err)

		_, err = jobs.ClaimNextQueued(context.Background())
		require.NoError(t, err)
		require.NoError(t, jobs.MarkFailed(context.Background(), draft.ID,
			domain.ErrorCodeTranscriptionFailed, "model unavailable"))

		job, err := svc.RetryJob(context.Background(), ownerID, draft.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.JobStatusQueued, job.Status)
		assert.Empty(t, job.ErrorCode)
		assert.Empty(t, job.ErrorMessage)

		// The reset job is claimable again.
		claimed, err := jobs.ClaimNextQueued(context.Background())
		require.NoError(t, err)
		assert.Equal(t, draft.ID, claimed.ID)
	})

	t.Run("rejects retry of a non-failed job", func(t *testing.T) {
		t.Parallel()

		jobs := mocks.NewMemoryJobStore()
		svc := newJobService(t, jobs)
		ownerID := uuid.New()
		draft := seedDraft(t, jobs, ownerID)

		_, err := svc.RetryJob(context.Background(), ownerID, draft.ID)
		assert.ErrorIs(t, err, service.ErrJobNotRetryable)
	})
}
