package transcription

import "errors"

// Common errors returned by transcriber implementations.
var (
	// ErrTranscriptionFailed is returned when transcription fails for any
	// general reason.
	ErrTranscriptionFailed = errors.New("failed to transcribe audio")

	// ErrUnsupportedFormat is returned when the audio content type is not
	// supported by the backing service.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrInvalidResponse is returned when the service response cannot be
	// interpreted as a transcript.
	ErrInvalidResponse = errors.New("invalid response from transcription service")

	// ErrTransientFailure is returned for temporary errors that might
	// resolve on retry.
	ErrTransientFailure = errors.New("transient error during transcription")

	// ErrInvalidConfig is returned when the transcriber configuration is invalid.
	ErrInvalidConfig = errors.New("invalid transcriber configuration")
)
