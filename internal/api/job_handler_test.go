package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/jot-api/internal/api"
	apiMiddleware "github.com/phrazzld/jot-api/internal/api/middleware"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/mocks"
	"github.com/phrazzld/jot-api/internal/service"
	"github.com/phrazzld/jot-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	jobs    *mocks.MemoryJobStore
	tasks   *mocks.MemoryTaskItemStore
	objects *mocks.MockObjectStore
	server  *httptest.Server
	userID  uuid.UUID
}

// newAPIFixture wires the handler against real services over in-memory
// stores, behind the real auth middleware with a stubbed token validator.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	jobs := mocks.NewMemoryJobStore()
	tasks := mocks.NewMemoryTaskItemStore()
	objects := mocks.NewMockObjectStore()
	userID := uuid.New()

	uploadService, err := service.NewUploadService(jobs, objects, 15*time.Minute, nil)
	require.NoError(t, err)
	jobService, err := service.NewJobService(jobs, nil)
	require.NoError(t, err)

	jwtService := &mocks.MockJWTService{
		ValidateTokenFn: func(ctx context.Context, tokenString string) (*auth.Claims, error) {
			if tokenString != "good-token" {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Claims{UserID: userID}, nil
		},
	}

	handler := api.NewJobHandler(uploadService, jobService, tasks)
	authMiddleware := apiMiddleware.NewAuthMiddleware(jwtService)

	r := chi.NewRouter()
	r.Use(apiMiddleware.TraceMiddleware)
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/upload-url", handler.RequestUpload)
			r.Post("/jobs", handler.ConfirmUpload)
			r.Get("/jobs", handler.ListJobs)
			r.Get("/jobs/{id}", handler.GetJob)
			r.Post("/jobs/{id}/retry", handler.RetryJob)
			r.Get("/jobs/{id}/tasks", handler.ListJobTasks)
		})
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &apiFixture{
		jobs:    jobs,
		tasks:   tasks,
		objects: objects,
		server:  server,
		userID:  userID,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRequestUploadEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("issues grant and draft stays invisible to the worker", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(t)
		resp := f.do(t, http.MethodPost, "/api/upload-url",
			map[string]string{"filename": "note.wav", "contentType": "audio/wav"}, "good-token")
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		grant := decodeBody[api.UploadGrantResponse](t, resp)
		assert.NotEmpty(t, grant.JobID)
		assert.NotEmpty(t, grant.StoragePath)
		assert.NotEmpty(t, grant.Token)

		// Immediately reading the job shows a non-queued status.
		getResp := f.do(t, http.MethodGet, "/api/jobs/"+grant.JobID, nil, "good-token")
		require.Equal(t, http.StatusOK, getResp.StatusCode)
		job := decodeBody[api.JobResponse](t, getResp)
		assert.Equal(t, string(domain.JobStatusDraft), job.Status)
		assert.NotEqual(t, string(domain.JobStatusQueued), job.Status)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(t)
		resp := f.do(t, http.MethodPost, "/api/upload-url",
			map[string]string{"filename": "note.wav"}, "good-token")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(t)
		resp := f.do(t, http.MethodPost, "/api/upload-url",
			map[string]string{"filename": "note.wav", "contentType": "audio/wav"}, "")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = f.do(t, http.MethodPost, "/api/upload-url",
			map[string]string{"filename": "note.wav", "contentType": "audio/wav"}, "bad-token")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestConfirmUploadEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("queues a confirmed upload", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(t)
		grantResp := f.do(t, http.MethodPost, "/api/upload-url",
			map[string]string{"filename": "note.wav", "contentType": "audio/wav"}, "good-token")
		grant := decodeBody[api.UploadGrantResponse](t, grantResp)

		resp := f.do(t, http.MethodPost, "/api/jobs", map[string]any{
			"job_id":           grant.JobID,
			"storage_path":     grant.StoragePath,
			"size_bytes":       4096,
			"draft_transcript": "buy milk tomorrow at 9am",
		}, "good-token")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		job := decodeBody[api.JobResponse](t, resp)
		assert.Equal(t, string(domain.JobStatusQueued), job.Status)
		assert.NotNil(t, job.QueuedAt)
		assert.Equal(t, "buy milk tomorrow at 9am", job.DraftTranscript)
	})

	t.Run("rejects missing storage path", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(t)
		resp := f.do(t, http.MethodPost, "/api/jobs", map[string]any{
			"job_id": uuid.New().String(),
		}, "good-token")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("conflict once the job has been claimed", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(t)
		grantResp := f.do(t, http.MethodPost, "/api/upload-url",
			map[string]string{"filename": "note.wav", "contentType": "audio/wav"}, "good-token")
		grant := decodeBody[api.UploadGrantResponse](t, grantResp)

		confirm := map[string]any{"job_id": grant.JobID, "storage_path": grant.StoragePath}
		resp := f.do(t, http.MethodPost, "/api/jobs", confirm, "good-token")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		// A worker picks the job up.
		_, err := f.jobs.ClaimNextQueued(context.Background())
		require.NoError(t, err)

		resp = f.do(t, http.MethodPost, "/api/jobs", confirm, "good-token")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestGetJobEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("marks the response non-cacheable", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(t)
		grantResp := f.do(t, http.MethodPost, "/api/upload-url",
			map[string]string{"filename": "note.wav", "contentType": "audio/wav"}, "good-token")
		grant := decodeBody[api.UploadGrantResponse](t, grantResp)

		resp := f.do(t, http.MethodGet, "/api/jobs/"+grant.JobID, nil, "good-token")
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	})

	t.Run("unknown job 404s", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(t)
		resp := f.do(t, http.MethodGet, "/api/jobs/"+uuid.New().String(), nil, "good-token")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed job ID 400s", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(t)
		resp := f.do(t, http.MethodGet, "/api/jobs/not-a-uuid", nil, "good-token")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRetryJobEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("resets a failed job", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(t)
		grantResp := f.do(t, http.MethodPost, "/api/upload-url",
			map[string]string{"filename": "note.wav", "contentType": "audio/wav"}, "good-token")
		grant := decodeBody[api.UploadGrantResponse](t, grantResp)

		resp := f.do(t, http.MethodPost, "/api/jobs",
			map[string]any{"job_id": grant.JobID, "storage_path": grant.StoragePath}, "good-token")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		jobID := uuid.MustParse(grant.JobID)
		_, err := f.jobs.ClaimNextQueued(context.Background())
		require.NoError(t, err)
		require.NoError(t, f.jobs.MarkFailed(context.Background(), jobID,
			domain.ErrorCodeTimeout, "transcription stalled"))

		resp = f.do(t, http.MethodPost, "/api/jobs/"+grant.JobID+"/retry", nil, "good-token")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		job := decodeBody[api.JobResponse](t, resp)
		assert.Equal(t, string(domain.JobStatusQueued), job.Status)
		assert.Empty(t, job.ErrorCode)
	})

	t.Run("conflict on non-failed job", func(t *testing.T) {
		t.Parallel()

		f := newAPIFixture(t)
		grantResp := f.do(t, http.MethodPost, "/api/upload-url",
			map[string]string{"filename": "note.wav", "contentType": "audio/wav"}, "good-token")
		grant := decodeBody[api.UploadGrantResponse](t, grantResp)

		resp := f.do(t, http.MethodPost, "/api/jobs/"+grant.JobID+"/retry", nil, "good-token")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}

func TestListEndpoints(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	grantResp := f.do(t, http.MethodPost, "/api/upload-url",
		map[string]string{"filename": "note.wav", "contentType": "audio/wav"}, "good-token")
	grant := decodeBody[api.UploadGrantResponse](t, grantResp)
	jobID := uuid.MustParse(grant.JobID)

	item, err := domain.NewTaskItem(f.userID, jobID, "pay rent", "the 1st", "")
	require.NoError(t, err)
	require.NoError(t, f.tasks.CreateMultiple(context.Background(), []*domain.TaskItem{item}))

	t.Run("lists the owner's jobs", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/jobs", nil, "good-token")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		jobs := decodeBody[[]api.JobResponse](t, resp)
		require.Len(t, jobs, 1)
		assert.Equal(t, grant.JobID, jobs[0].ID)
	})

	t.Run("lists a job's extracted tasks", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/jobs/"+grant.JobID+"/tasks", nil, "good-token")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		items := decodeBody[[]api.TaskItemResponse](t, resp)
		require.Len(t, items, 1)
		assert.Equal(t, "pay rent", items[0].Title)
		assert.Equal(t, "the 1st", items[0].DueHint)
	})
}
