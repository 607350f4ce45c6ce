package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/api/shared"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/service"
	"github.com/phrazzld/jot-api/internal/store"
)

// defaultListLimit caps unpaginated list requests.
const defaultListLimit = 20

// RequestUploadRequest represents the request body for requesting an
// upload grant.
type RequestUploadRequest struct {
	Filename    string `json:"filename"    validate:"required,min=1"`
	ContentType string `json:"contentType" validate:"required,min=1"`
}

// UploadGrantResponse represents the response data for an upload grant.
type UploadGrantResponse struct {
	JobID       string    `json:"job_id"`
	StoragePath string    `json:"storage_path"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ConfirmUploadRequest represents the request body for confirming that a
// binary upload completed.
type ConfirmUploadRequest struct {
	JobID           string `json:"job_id"       validate:"required,uuid"`
	StoragePath     string `json:"storage_path" validate:"required,min=1"`
	ContentType     string `json:"content_type,omitempty"`
	SizeBytes       int64  `json:"size_bytes,omitempty"`
	DraftTranscript string `json:"draft_transcript,omitempty"`
}

// JobResponse represents the response projection of a job record.
type JobResponse struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	StoragePath     string     `json:"storage_path"`
	ContentType     string     `json:"content_type,omitempty"`
	SizeBytes       int64      `json:"size_bytes,omitempty"`
	Status          string     `json:"status"`
	DraftTranscript string     `json:"draft_transcript,omitempty"`
	Transcript      string     `json:"transcript,omitempty"`
	ErrorCode       string     `json:"error_code,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	QueuedAt        *time.Time `json:"queued_at,omitempty"`
	TranscribedAt   *time.Time `json:"transcribed_at,omitempty"`
	InsertedAt      *time.Time `json:"inserted_at,omitempty"`
}

// TaskItemResponse represents the response data for an extracted task.
type TaskItemResponse struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	Title     string    `json:"title"`
	DueHint   string    `json:"due_hint,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JobHandler handles the voice-note pipeline HTTP requests.
type JobHandler struct {
	uploadService service.UploadService
	jobService    service.JobService
	taskItems     store.TaskItemStore
	validator     *validator.Validate
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(
	uploadService service.UploadService,
	jobService service.JobService,
	taskItems store.TaskItemStore,
) *JobHandler {
	return &JobHandler{
		uploadService: uploadService,
		jobService:    jobService,
		taskItems:     taskItems,
		validator:     validator.New(),
	}
}

// RequestUpload handles POST /api/upload-url requests. It reserves a job
// identity and returns a signed upload URL; the job is not yet visible to
// the worker.
func (h *JobHandler) RequestUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req RequestUploadRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	grant, err := h.uploadService.RequestUpload(r.Context(), userID, req.Filename, req.ContentType)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, UploadGrantResponse{
		JobID:       grant.JobID.String(),
		StoragePath: grant.StorageKey,
		Token:       grant.UploadURL,
		ExpiresAt:   grant.ExpiresAt,
	})
}

// ConfirmUpload handles POST /api/jobs requests. Confirmation is the only
// path that makes a job visible to the worker.
func (h *JobHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req ConfirmUploadRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID format")
		return
	}

	job, err := h.jobService.ConfirmUpload(r.Context(), userID, jobID, service.ConfirmUploadParams{
		StorageKey:      req.StoragePath,
		ContentType:     req.ContentType,
		SizeBytes:       req.SizeBytes,
		DraftTranscript: req.DraftTranscript,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// GetJob handles GET /api/jobs/{id} requests. Clients poll this endpoint
// to observe pipeline progress, so the response is marked non-cacheable.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	jobID, err := getPathUUID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	job, err := h.jobService.GetJob(r.Context(), userID, jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// ListJobs handles GET /api/jobs requests.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	limit := queryInt(r, "limit", defaultListLimit)
	offset := queryInt(r, "offset", 0)

	jobs, err := h.jobService.ListJobs(r.Context(), userID, limit, offset)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, jobToResponse(job))
	}

	w.Header().Set("Cache-Control", "no-store")
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// RetryJob handles POST /api/jobs/{id}/retry requests, resetting a failed
// job to queued.
func (h *JobHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	jobID, err := getPathUUID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	job, err := h.jobService.RetryJob(r.Context(), userID, jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// ListJobTasks handles GET /api/jobs/{id}/tasks requests, returning the
// structured tasks extracted from one job.
func (h *JobHandler) ListJobTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	jobID, err := getPathUUID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	// Ownership check rides on the job read; a foreign job 404s here
	// before any task rows are touched.
	if _, err := h.jobService.GetJob(r.Context(), userID, jobID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	items, err := h.taskItems.ListByJob(r.Context(), jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]TaskItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, TaskItemResponse{
			ID:        item.ID.String(),
			JobID:     item.JobID.String(),
			Title:     item.Title,
			DueHint:   item.DueHint,
			Notes:     item.Notes,
			CreatedAt: item.CreatedAt,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// jobToResponse converts a domain.Job to a JobResponse.
func jobToResponse(job *domain.Job) JobResponse {
	return JobResponse{
		ID:              job.ID.String(),
		OwnerID:         job.OwnerID.String(),
		StoragePath:     job.StorageKey,
		ContentType:     job.ContentType,
		SizeBytes:       job.SizeBytes,
		Status:          string(job.Status),
		DraftTranscript: job.DraftTranscript,
		Transcript:      job.Transcript,
		ErrorCode:       job.ErrorCode,
		ErrorMessage:    job.ErrorMessage,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		QueuedAt:        job.QueuedAt,
		TranscribedAt:   job.TranscribedAt,
		InsertedAt:      job.InsertedAt,
	}
}

// queryInt reads an integer query parameter, falling back to def on
// absence or garbage.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
