package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/extraction"
)

// MockExtractor implements extraction.Extractor for testing
type MockExtractor struct {
	// ExtractTasksFn allows test cases to mock the ExtractTasks behavior
	ExtractTasksFn func(ctx context.Context, transcript string, ownerID, jobID uuid.UUID) ([]*domain.TaskItem, error)

	// Default response values
	Items []*domain.TaskItem
	Err   error

	// Call tracking for verification
	mu          sync.Mutex
	calls       int
	transcripts []string
}

// Ensure MockExtractor implements extraction.Extractor
var _ extraction.Extractor = (*MockExtractor)(nil)

// ExtractTasks implements the extraction.Extractor interface
func (m *MockExtractor) ExtractTasks(
	ctx context.Context,
	transcript string,
	ownerID, jobID uuid.UUID,
) ([]*domain.TaskItem, error) {
	m.mu.Lock()
	m.calls++
	m.transcripts = append(m.transcripts, transcript)
	m.mu.Unlock()

	if m.ExtractTasksFn != nil {
		return m.ExtractTasksFn(ctx, transcript, ownerID, jobID)
	}
	return m.Items, m.Err
}

// Calls returns how many times ExtractTasks was invoked.
func (m *MockExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Transcripts returns the transcripts passed to ExtractTasks calls.
func (m *MockExtractor) Transcripts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.transcripts...)
}
