package transcription

import "context"

// Transcriber defines the interface for converting recorded audio into
// text. It is the boundary between the worker loop and whatever speech
// service backs it, so the pipeline never depends on a concrete vendor.
type Transcriber interface {
	// Transcribe converts the given audio bytes into transcript text.
	// contentType is the MIME type recorded at upload time (e.g.
	// "audio/wav"). The call blocks until the transcript is ready, an
	// error occurs, or ctx is cancelled.
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}
