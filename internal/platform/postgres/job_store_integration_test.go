package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/jot-api/internal/domain"
	"github.com/phrazzld/jot-api/internal/platform/postgres"
	"github.com/phrazzld/jot-api/internal/store"
	"github.com/phrazzld/jot-api/migrations"
)

// setupTestDB opens the database named by JOT_TEST_DATABASE_URL, applies
// the embedded migrations, and empties the job tables. Tests exercising
// the real claim SQL are skipped when the variable is unset.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("JOT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("JOT_TEST_DATABASE_URL not set; skipping database integration tests")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Ping())

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "."))

	_, err = db.Exec("TRUNCATE task_items, jobs")
	require.NoError(t, err)

	return db
}

// seedQueued inserts a job and confirms it through the upsert path so it
// is claimable.
func seedQueued(t *testing.T, jobs *postgres.PostgresJobStore, ownerID uuid.UUID) *domain.Job {
	t.Helper()
	ctx := context.Background()

	job, err := domain.NewDraftJob(uuid.New(), ownerID, "audio/"+ownerID.String()+"/note.wav", "audio/wav")
	require.NoError(t, err)
	require.NoError(t, jobs.CreateDraft(ctx, job))

	now := time.Now().UTC()
	job.Status = domain.JobStatusQueued
	job.QueuedAt = &now
	job.UpdatedAt = now
	require.NoError(t, jobs.Upsert(ctx, job))

	return job
}

func TestClaimNextQueuedSQL(t *testing.T) {
	db := setupTestDB(t)
	jobs := postgres.NewPostgresJobStore(db, nil)
	ctx := context.Background()

	t.Run("empty queue", func(t *testing.T) {
		_, err := jobs.ClaimNextQueued(ctx)
		assert.ErrorIs(t, err, store.ErrNoQueuedJobs)
	})

	t.Run("oldest queued job wins and leaves with a lease", func(t *testing.T) {
		first := seedQueued(t, jobs, uuid.New())
		time.Sleep(10 * time.Millisecond)
		seedQueued(t, jobs, uuid.New())

		claimed, err := jobs.ClaimNextQueued(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.ID, claimed.ID)
		assert.Equal(t, domain.JobStatusTranscribing, claimed.Status)
		assert.NotNil(t, claimed.ClaimedAt)
	})

	t.Run("concurrent claimants never share a job", func(t *testing.T) {
		_, err := db.Exec("TRUNCATE task_items, jobs")
		require.NoError(t, err)
		job := seedQueued(t, jobs, uuid.New())

		const claimants = 8
		var wg sync.WaitGroup
		winners := make(chan uuid.UUID, claimants)
		for i := 0; i < claimants; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				claimed, err := jobs.ClaimNextQueued(ctx)
				if err == nil {
					winners <- claimed.ID
				}
			}()
		}
		wg.Wait()
		close(winners)

		var won []uuid.UUID
		for id := range winners {
			won = append(won, id)
		}
		require.Len(t, won, 1)
		assert.Equal(t, job.ID, won[0])
	})
}

func TestTransitionGuardsSQL(t *testing.T) {
	db := setupTestDB(t)
	jobs := postgres.NewPostgresJobStore(db, nil)
	ctx := context.Background()

	job := seedQueued(t, jobs, uuid.New())

	t.Run("upsert is guarded out after the claim", func(t *testing.T) {
		claimed, err := jobs.ClaimNextQueued(ctx)
		require.NoError(t, err)
		require.Equal(t, job.ID, claimed.ID)

		job.UpdatedAt = time.Now().UTC()
		assert.ErrorIs(t, jobs.Upsert(ctx, job), store.ErrWrongStatus)
	})

	t.Run("transcript lands exactly once", func(t *testing.T) {
		require.NoError(t, jobs.MarkTranscribed(ctx, job.ID, "pay rent on the 1st"))
		assert.ErrorIs(t, jobs.MarkTranscribed(ctx, job.ID, "duplicate write"),
			store.ErrWrongStatus)

		stored, err := jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, "pay rent on the 1st", stored.Transcript)
		assert.NotNil(t, stored.TranscribedAt)
	})

	t.Run("terminal insert rejects later failure writes", func(t *testing.T) {
		require.NoError(t, jobs.MarkInserted(ctx, job.ID))
		assert.ErrorIs(t,
			jobs.MarkFailed(ctx, job.ID, domain.ErrorCodeTimeout, "late"),
			store.ErrWrongStatus)

		stored, err := jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusInserted, stored.Status)
		assert.NotNil(t, stored.InsertedAt)
	})
}

func TestStaleClaimSweepSQL(t *testing.T) {
	db := setupTestDB(t)
	jobs := postgres.NewPostgresJobStore(db, nil)
	ctx := context.Background()

	job := seedQueued(t, jobs, uuid.New())
	_, err := jobs.ClaimNextQueued(ctx)
	require.NoError(t, err)

	// Age the claim past the sweep threshold.
	_, err = db.Exec("UPDATE jobs SET claimed_at = $1 WHERE id = $2",
		time.Now().UTC().Add(-time.Hour), job.ID)
	require.NoError(t, err)

	reset, err := jobs.ResetStaleClaims(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, reset)

	stored, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, stored.Status)
	assert.Nil(t, stored.ClaimedAt)

	// The recovered job is claimable again.
	claimed, err := jobs.ClaimNextQueued(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.ID, claimed.ID)
}
