package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/jot-api/internal/transcription"
)

// MockTranscriber implements transcription.Transcriber for testing
type MockTranscriber struct {
	// TranscribeFn allows test cases to mock the Transcribe behavior
	TranscribeFn func(ctx context.Context, audio []byte, contentType string) (string, error)

	// Default response values
	Transcript string
	Err        error

	// Call tracking for verification
	mu    sync.Mutex
	calls int
}

// Ensure MockTranscriber implements transcription.Transcriber
var _ transcription.Transcriber = (*MockTranscriber)(nil)

// Transcribe implements the transcription.Transcriber interface
func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.TranscribeFn != nil {
		return m.TranscribeFn(ctx, audio, contentType)
	}
	return m.Transcript, m.Err
}

// Calls returns how many times Transcribe was invoked.
func (m *MockTranscriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
