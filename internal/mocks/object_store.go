package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/jot-api/internal/objectstore"
)

// MockObjectStore implements objectstore.Client for testing. Objects can
// be seeded via Put; unseeded keys return objectstore.ErrObjectNotFound
// like the real client.
type MockObjectStore struct {
	// SignedUploadURLFn allows test cases to mock the signing behavior
	SignedUploadURLFn func(ctx context.Context, key, contentType string, ttl time.Duration) (string, time.Time, error)

	// DownloadFn allows test cases to mock the download behavior
	DownloadFn func(ctx context.Context, key string) ([]byte, error)

	// DownloadErr, when set, is returned by every Download call.
	DownloadErr error

	mu      sync.Mutex
	objects map[string][]byte
}

// NewMockObjectStore creates an empty MockObjectStore.
func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{
		objects: make(map[string][]byte),
	}
}

// Ensure MockObjectStore implements objectstore.Client
var _ objectstore.Client = (*MockObjectStore)(nil)

// Put seeds an object at the given key.
func (m *MockObjectStore) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

// SignedUploadURL implements objectstore.Client.SignedUploadURL
func (m *MockObjectStore) SignedUploadURL(
	ctx context.Context,
	key, contentType string,
	ttl time.Duration,
) (string, time.Time, error) {
	if m.SignedUploadURLFn != nil {
		return m.SignedUploadURLFn(ctx, key, contentType, ttl)
	}
	return "https://storage.example.com/upload/" + key, time.Now().UTC().Add(ttl), nil
}

// Download implements objectstore.Client.Download
func (m *MockObjectStore) Download(ctx context.Context, key string) ([]byte, error) {
	if m.DownloadFn != nil {
		return m.DownloadFn(ctx, key)
	}
	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, objectstore.ErrObjectNotFound
	}
	return data, nil
}
