package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/mocks"
	"github.com/phrazzld/jot-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUploadService(t *testing.T, jobs *mocks.MemoryJobStore, objects *mocks.MockObjectStore) service.UploadService {
	t.Helper()
	svc, err := service.NewUploadService(jobs, objects, 15*time.Minute, nil)
	require.NoError(t, err)
	return svc
}

func TestRequestUpload(t *testing.T) {
	t.Parallel()

	t.Run("issues grant and reserves draft row", func(t *testing.T) {
		t.Parallel()

		jobs := mocks.NewMemoryJobStore()
		objects := mocks.NewMockObjectStore()
		svc := newUploadService(t, jobs, objects)

		ownerID := uuid.New()
		grant, err := svc.RequestUpload(context.Background(), ownerID, "note.wav", "audio/wav")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, grant.JobID)
		assert.Equal(t, "audio/"+ownerID.String()+"/"+grant.JobID.String()+".wav", grant.StorageKey)
		assert.NotEmpty(t, grant.UploadURL)
		assert.True(t, grant.ExpiresAt.After(time.Now()))

		// The reserved row exists but is not visible to the worker.
		job, err := jobs.GetByID(context.Background(), grant.JobID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusDraft, job.Status)
		assert.NotEqual(t, domain.JobStatusQueued, job.Status)
		assert.Equal(t, "audio/wav", job.ContentType)
	})

	t.Run("content type drives extension", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			contentType string
			filename    string
			wantSuffix  string
		}{
			{"audio/wav", "note.wav", ".wav"},
			{"audio/mpeg", "note.mp3", ".mp3"},
			{"audio/mp4", "note.m4a", ".m4a"},
			{"audio/ogg", "memo", ".ogg"},
			{"audio/webm", "memo", ".webm"},
			{"audio/flac", "memo", ".flac"},
			// Unknown type falls back to the filename's extension.
			{"application/octet-stream", "recording.opus", ".opus"},
			// No usable extension anywhere falls back to .bin.
			{"application/octet-stream", "recording", ".bin"},
		}

		jobs := mocks.NewMemoryJobStore()
		objects := mocks.NewMockObjectStore()
		svc := newUploadService(t, jobs, objects)
		ownerID := uuid.New()

		for _, tt := range tests {
			grant, err := svc.RequestUpload(context.Background(), ownerID, tt.filename, tt.contentType)
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(grant.StorageKey, tt.wantSuffix),
				"contentType %q filename %q: got key %q, want suffix %q",
				tt.contentType, tt.filename, grant.StorageKey, tt.wantSuffix)
		}
	})

	t.Run("signing failure leaves no partial state", func(t *testing.T) {
		t.Parallel()

		jobs := mocks.NewMemoryJobStore()
		objects := mocks.NewMockObjectStore()
		objects.SignedUploadURLFn = func(ctx context.Context, key, contentType string, ttl time.Duration) (string, time.Time, error) {
			return "", time.Time{}, errors.New("signer unavailable")
		}
		svc := newUploadService(t, jobs, objects)

		ownerID := uuid.New()
		_, err := svc.RequestUpload(context.Background(), ownerID, "note.wav", "audio/wav")
		require.Error(t, err)

		listed, err := jobs.ListByOwner(context.Background(), ownerID, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("rejects missing owner", func(t *testing.T) {
		t.Parallel()

		svc := newUploadService(t, mocks.NewMemoryJobStore(), mocks.NewMockObjectStore())
		_, err := svc.RequestUpload(context.Background(), uuid.Nil, "note.wav", "audio/wav")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
