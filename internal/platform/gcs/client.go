package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/phrazzld/jot-api/internal/objectstore"
)

// Client implements objectstore.Client backed by a Google Cloud Storage
// bucket. Signed URLs use the V4 scheme and are scoped to a single object
// key, so a leaked URL grants nothing beyond one upload slot.
type Client struct {
	bucket *storage.BucketHandle
	name   string
	logger *slog.Logger
}

// Ensure Client implements the objectstore.Client interface
var _ objectstore.Client = (*Client)(nil)

// NewClient creates a GCS-backed object store client for the given bucket.
// Credentials are resolved from the environment (application default
// credentials), matching how the rest of the platform authenticates.
func NewClient(ctx context.Context, bucketName string, logger *slog.Logger) (*Client, error) {
	if bucketName == "" {
		return nil, errors.New("bucket name cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Client{
		bucket: client.Bucket(bucketName),
		name:   bucketName,
		logger: logger.With(slog.String("component", "object_store"), slog.String("bucket", bucketName)),
	}, nil
}

// SignedUploadURL implements objectstore.Client.SignedUploadURL.
// The returned URL permits one PUT of the given content type to exactly
// the given key until expiry.
func (c *Client) SignedUploadURL(
	ctx context.Context,
	key, contentType string,
	ttl time.Duration,
) (string, time.Time, error) {
	expires := time.Now().UTC().Add(ttl)

	url, err := c.bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		Expires:     expires,
		ContentType: contentType,
	})
	if err != nil {
		c.logger.Error("failed to sign upload URL",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return "", time.Time{}, fmt.Errorf("%w: %v", objectstore.ErrSigningFailed, err)
	}

	return url, expires, nil
}

// Download implements objectstore.Client.Download.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	reader, err := c.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", objectstore.ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			c.logger.Warn("failed to close object reader",
				slog.String("key", key),
				slog.String("error", closeErr.Error()))
		}
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	return data, nil
}
