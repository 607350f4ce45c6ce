package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/objectstore"
	"github.com/phrazzld/jot-api/internal/platform/logger"
	"github.com/phrazzld/jot-api/internal/store"
)

// audioExtensions maps known audio content types to their canonical file
// extension. Unknown types fall back to the client filename's extension,
// then to ".bin"; the true content type is still recorded verbatim on the
// job row.
var audioExtensions = map[string]string{
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/wave":  ".wav",
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/mp4":   ".m4a",
	"audio/m4a":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/aac":   ".m4a",
	"audio/ogg":   ".ogg",
	"audio/webm":  ".webm",
	"audio/flac":  ".flac",
}

// UploadGrant is everything a client needs to perform one direct upload:
// the reserved job identity, where the bytes will land, and a time-limited
// signed URL scoped to exactly that key.
type UploadGrant struct {
	JobID      uuid.UUID `json:"job_id"`
	StorageKey string    `json:"storage_path"`
	UploadURL  string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// UploadService issues signed upload grants and reserves draft job rows
// for uploads in flight.
type UploadService interface {
	// RequestUpload reserves a fresh job ID and storage key for the owner,
	// obtains a signed upload URL for that key, and pre-creates a draft
	// job row. Draft rows are never visible to the worker; the grant does
	// not mark the job ready for processing.
	RequestUpload(ctx context.Context, ownerID uuid.UUID, filename, contentType string) (*UploadGrant, error)
}

// uploadServiceImpl implements the UploadService interface.
type uploadServiceImpl struct {
	jobStore store.JobStore
	objects  objectstore.Client
	urlTTL   time.Duration
	logger   *slog.Logger
}

// NewUploadService creates a new UploadService.
// It returns an error if any of the required dependencies are nil.
func NewUploadService(
	jobStore store.JobStore,
	objects objectstore.Client,
	urlTTL time.Duration,
	logger *slog.Logger,
) (UploadService, error) {
	if jobStore == nil {
		return nil, NewJobServiceError("init", "jobStore cannot be nil", domain.ErrValidation)
	}
	if objects == nil {
		return nil, NewJobServiceError("init", "object store client cannot be nil", domain.ErrValidation)
	}
	if urlTTL <= 0 {
		return nil, NewJobServiceError("init", "upload URL TTL must be positive", domain.ErrValidation)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &uploadServiceImpl{
		jobStore: jobStore,
		objects:  objects,
		urlTTL:   urlTTL,
		logger:   logger.With(slog.String("component", "upload_service")),
	}, nil
}

// RequestUpload implements UploadService.RequestUpload.
func (s *uploadServiceImpl) RequestUpload(
	ctx context.Context,
	ownerID uuid.UUID,
	filename, contentType string,
) (*UploadGrant, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if ownerID == uuid.Nil {
		return nil, NewJobServiceError("request_upload", "owner ID is required", domain.ErrValidation)
	}

	jobID := uuid.New()
	storageKey := deriveStorageKey(ownerID, jobID, filename, contentType)

	// Sign before persisting anything: key derivation is pure, so a
	// signing failure leaves no partial state behind.
	uploadURL, expiresAt, err := s.objects.SignedUploadURL(ctx, storageKey, contentType, s.urlTTL)
	if err != nil {
		log.Error("failed to sign upload URL",
			slog.String("error", err.Error()),
			slog.String("storage_key", storageKey))
		return nil, NewJobServiceError("request_upload", "failed to sign upload URL", err)
	}

	job, err := domain.NewDraftJob(jobID, ownerID, storageKey, contentType)
	if err != nil {
		return nil, NewJobServiceError("request_upload", "invalid draft job", err)
	}

	if err := s.jobStore.CreateDraft(ctx, job); err != nil {
		log.Error("failed to create draft job",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return nil, NewJobServiceError("request_upload", "failed to reserve draft job", err)
	}

	log.Debug("issued upload grant",
		slog.String("job_id", jobID.String()),
		slog.String("storage_key", storageKey),
		slog.Time("expires_at", expiresAt))

	return &UploadGrant{
		JobID:      jobID,
		StorageKey: storageKey,
		UploadURL:  uploadURL,
		ExpiresAt:  expiresAt,
	}, nil
}

// deriveStorageKey builds the deterministic object key for a job's audio
// blob. The layout is inspectable without a database lookup:
// audio/{owner_id}/{job_id}{ext}.
func deriveStorageKey(ownerID, jobID uuid.UUID, filename, contentType string) string {
	ext, ok := audioExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		ext = strings.ToLower(filepath.Ext(filename))
		if ext == "" {
			ext = ".bin"
		}
	}
	return fmt.Sprintf("audio/%s/%s%s", ownerID, jobID, ext)
}
