package objectstore

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by object store implementations.
var (
	// ErrObjectNotFound is returned when the object at the given key does
	// not exist. The worker maps this onto the blob_missing failure so a
	// registrar contract violation stays visible to operators.
	ErrObjectNotFound = errors.New("object not found")

	// ErrSigningFailed is returned when a signed upload URL cannot be
	// produced. Callers treat it as retryable; key derivation is pure so
	// no partial state is left behind.
	ErrSigningFailed = errors.New("failed to sign upload URL")
)

// Client stores and retrieves audio blobs by key and issues short-lived
// signed upload credentials scoped to exactly one key.
type Client interface {
	// SignedUploadURL returns a time-limited URL permitting a single
	// direct PUT of one object with the given content type, plus the
	// URL's expiry time.
	SignedUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, time.Time, error)

	// Download retrieves the full object at the given key.
	// Returns ErrObjectNotFound if no object exists there.
	Download(ctx context.Context, key string) ([]byte, error)
}
