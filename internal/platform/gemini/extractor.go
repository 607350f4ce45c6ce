package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/config"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/extraction"
	"google.golang.org/genai"
)

// extractPromptTemplate asks the model for actionable tasks as a JSON
// array. Explicitly allowing an empty array keeps "nothing actionable"
// distinguishable from a parse failure.
const extractPromptTemplate = `You are extracting actionable tasks from the transcript of a voice note.

Transcript:
{{.Transcript}}

Return a JSON array of task objects, each with these fields:
- "title": short imperative description of the task (required)
- "due_hint": any due date or time mentioned, verbatim (empty string if none)
- "notes": supporting detail from the transcript (empty string if none)

Return only the JSON array. If the transcript contains no actionable task, return [].`

// taskCandidate is the JSON shape the model is asked to produce.
type taskCandidate struct {
	Title   string `json:"title"`
	DueHint string `json:"due_hint"`
	Notes   string `json:"notes"`
}

// promptData carries template inputs for the extraction prompt.
type promptData struct {
	Transcript string
}

// Extractor implements the extraction.Extractor interface using Google's
// Gemini API with a JSON response contract.
type Extractor struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	client         *genai.Client
	model          string
}

// Ensure Extractor implements the extraction.Extractor interface
var _ extraction.Extractor = (*Extractor)(nil)

// NewExtractor creates a Gemini-backed task extractor.
func NewExtractor(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Extractor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	promptTemplate, err := template.New("extract_tasks").Parse(extractPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			extraction.ErrInvalidConfig, err)
	}

	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", extraction.ErrInvalidConfig, err)
	}

	return &Extractor{
		logger:         logger.With(slog.String("component", "gemini_extractor")),
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// ExtractTasks implements extraction.Extractor.ExtractTasks.
// An empty transcript yields zero candidates without calling the API.
func (e *Extractor) ExtractTasks(
	ctx context.Context,
	transcript string,
	ownerID, jobID uuid.UUID,
) ([]*domain.TaskItem, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}

	var promptBuffer bytes.Buffer
	if err := e.promptTemplate.Execute(&promptBuffer, promptData{Transcript: transcript}); err != nil {
		return nil, fmt.Errorf("%w: failed to execute prompt template: %v",
			extraction.ErrExtractionFailed, err)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(promptBuffer.String(), genai.RoleUser),
	}

	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var candidates []taskCandidate
	err := generateWithRetry(ctx, e.logger, e.config, func(ctx context.Context) error {
		resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, genConfig)
		if err != nil {
			return fmt.Errorf("gemini API call failed: %w", err)
		}

		text, err := responseText(resp)
		if err != nil {
			return err
		}

		if err := json.Unmarshal([]byte(stripCodeFence(text)), &candidates); err != nil {
			return permanent(fmt.Errorf("%w: %v", extraction.ErrInvalidResponse, err))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, extraction.ErrInvalidResponse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", extraction.ErrExtractionFailed, err)
	}

	items := make([]*domain.TaskItem, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Title) == "" {
			e.logger.WarnContext(ctx, "skipping extracted task with empty title",
				"job_id", jobID)
			continue
		}

		item, err := domain.NewTaskItem(ownerID, jobID, strings.TrimSpace(c.Title), c.DueHint, c.Notes)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid task candidate: %v",
				extraction.ErrInvalidResponse, err)
		}
		items = append(items, item)
	}

	e.logger.DebugContext(ctx, "task extraction complete",
		"job_id", jobID,
		"candidate_count", len(candidates),
		"task_count", len(items))

	return items, nil
}

// stripCodeFence removes a Markdown code fence wrapper the model sometimes
// adds despite the JSON response MIME type.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
