// Package transcription defines the boundary interface for speech-to-text
// services consumed by the worker loop. Concrete implementations live
// under internal/platform.
package transcription
