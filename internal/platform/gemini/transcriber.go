package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/jot-api/internal/config"
	"github.com/phrazzld/jot-api/internal/transcription"
	"google.golang.org/genai"
)

// transcribePrompt instructs the model to act as a plain speech-to-text
// service. Kept deliberately terse: embellishment invites the model to
// summarize instead of transcribe.
const transcribePrompt = "Transcribe this audio recording verbatim. " +
	"Return only the spoken words as plain text, with no commentary, " +
	"labels, or formatting. If the recording contains no speech, return " +
	"an empty response."

// Transcriber implements the transcription.Transcriber interface using
// Google's Gemini API, which accepts audio parts directly.
type Transcriber struct {
	logger *slog.Logger
	config config.LLMConfig
	client *genai.Client
	model  string
}

// Ensure Transcriber implements the transcription.Transcriber interface
var _ transcription.Transcriber = (*Transcriber)(nil)

// NewTranscriber creates a Gemini-backed transcriber.
func NewTranscriber(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Transcriber, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", transcription.ErrInvalidConfig, err)
	}

	return &Transcriber{
		logger: logger.With(slog.String("component", "gemini_transcriber")),
		config: cfg,
		client: client,
		model:  cfg.ModelName,
	}, nil
}

// Transcribe implements transcription.Transcriber.Transcribe.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio payload", transcription.ErrTranscriptionFailed)
	}

	if !strings.HasPrefix(contentType, "audio/") {
		return "", fmt.Errorf("%w: %s", transcription.ErrUnsupportedFormat, contentType)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audio, contentType),
			genai.NewPartFromText(transcribePrompt),
		}, genai.RoleUser),
	}

	t.logger.DebugContext(ctx, "requesting transcription",
		"audio_bytes", len(audio),
		"content_type", contentType)

	var transcript string
	err := generateWithRetry(ctx, t.logger, t.config, func(ctx context.Context) error {
		resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
		if err != nil {
			// API-level failures are assumed transient.
			return fmt.Errorf("gemini API call failed: %w", err)
		}

		text, err := responseText(resp)
		if err != nil {
			// An empty response is a legitimate transcript of silent
			// audio, not a failure.
			if errors.Is(err, errEmptyContent) {
				transcript = ""
				return nil
			}
			return err
		}

		transcript = strings.TrimSpace(text)
		return nil
	})
	if err != nil {
		if errors.Is(err, transcription.ErrUnsupportedFormat) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", transcription.ErrTranscriptionFailed, err)
	}

	t.logger.DebugContext(ctx, "transcription complete",
		"transcript_length", len(transcript))

	return transcript, nil
}
