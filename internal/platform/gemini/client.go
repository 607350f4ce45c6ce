package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/phrazzld/jot-api/internal/config"
	"google.golang.org/genai"
)

// newClient initializes a Gemini API client from the LLM configuration.
func newClient(ctx context.Context, cfg config.LLMConfig) (*genai.Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name cannot be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return client, nil
}

// errEmptyContent signals a response whose candidate carried no text.
// The transcriber treats it as a valid transcript of silent audio.
var errEmptyContent = errors.New("empty content in response")

// permanentError marks errors that retrying cannot fix (safety blocks,
// malformed responses). generateWithRetry returns them immediately.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// permanent wraps an error so generateWithRetry stops retrying it.
func permanent(err error) error {
	return &permanentError{err: err}
}

// generateWithRetry calls fn with exponential backoff and jitter, up to
// maxRetries additional attempts, for errors not marked permanent.
// The delay between attempt n and n+1 is baseDelay * 2^n * rand(0.5, 1.0).
func generateWithRetry(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
	fn func(ctx context.Context) error,
) error {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelaySeconds := cfg.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			logger.WarnContext(ctx, "permanent error from Gemini API, not retrying",
				"attempt", attempt+1,
				"error", err)
			return perm.err
		}

		if attempt == maxRetries {
			break
		}

		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		logger.InfoContext(ctx, "retrying Gemini API call after delay",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("gemini call cancelled during retry delay: %w", ctx.Err())
		}
	}

	return fmt.Errorf("gemini call failed after %d attempts: %w", maxRetries+1, err)
}

// responseText extracts the concatenated text of the first candidate,
// classifying empty and safety-blocked responses as permanent errors.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", permanent(errors.New("no content generated"))
	}

	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", permanent(errors.New("content blocked by safety filters"))
	}

	text := resp.Text()
	if text == "" {
		return "", permanent(errEmptyContent)
	}

	return text, nil
}
