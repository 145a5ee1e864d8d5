package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newJob(id string, cat domain.Category, runAt time.Time) *domain.Job {
	return &domain.Job{
		ID:          id,
		Category:    cat,
		Type:        domain.TypePasswordReset,
		Payload:     domain.Payload{"to": "a@x.io", "resetLink": "https://x.io/r"},
		Status:      domain.StatusWaiting,
		MaxAttempts: 2,
		RunAt:       runAt,
		EnqueuedAt:  runAt,
	}
}

// repoFactories lets every behavioural test run against each storage backend
// that needs no external service.
func repoFactories(t *testing.T) map[string]func() JobRepository {
	return map[string]func() JobRepository{
		"memory": func() JobRepository { return NewMemoryJobRepository() },
		"sqlite": func() JobRepository {
			repo, err := NewSQLiteJobRepository(filepath.Join(t.TempDir(), "jobs.db"))
			require.NoError(t, err)
			t.Cleanup(func() { repo.Close() })
			return repo
		},
	}
}

func forEachRepo(t *testing.T, fn func(t *testing.T, repo JobRepository)) {
	for name, factory := range repoFactories(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, factory())
		})
	}
}

func TestClaim_OrderAndAttempts(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo JobRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, newJob("b", domain.CategoryAccount, t0)))
		require.NoError(t, repo.Create(ctx, newJob("a", domain.CategoryAccount, t0.Add(-time.Second))))
		require.NoError(t, repo.Create(ctx, newJob("c", domain.CategoryAccount, t0)))
		require.NoError(t, repo.Create(ctx, newJob("future", domain.CategoryAccount, t0.Add(time.Hour))))
		require.NoError(t, repo.Create(ctx, newJob("other", domain.CategoryPayment, t0)))

		var order []string
		for {
			j, err := repo.Claim(ctx, domain.CategoryAccount, t0, t0.Add(time.Minute))
			require.NoError(t, err)
			if j == nil {
				break
			}
			assert.Equal(t, domain.StatusActive, j.Status)
			assert.Equal(t, 1, j.AttemptsMade)
			require.NotNil(t, j.ProcessedAt)
			assert.True(t, j.ProcessedAt.Equal(t0))
			assert.Equal(t, "a@x.io", j.Payload.String("to"))
			order = append(order, j.ID)
		}
		assert.Equal(t, []string{"a", "b", "c"}, order)
	})
}

func TestClaim_SkipsPausedCategory(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo JobRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, newJob("j1", domain.CategorySecurity, t0)))
		require.NoError(t, repo.SetPaused(ctx, domain.CategorySecurity, true))

		paused, err := repo.IsPaused(ctx, domain.CategorySecurity)
		require.NoError(t, err)
		assert.True(t, paused)

		j, err := repo.Claim(ctx, domain.CategorySecurity, t0, t0.Add(time.Minute))
		require.NoError(t, err)
		assert.Nil(t, j)

		require.NoError(t, repo.SetPaused(ctx, domain.CategorySecurity, false))
		j, err = repo.Claim(ctx, domain.CategorySecurity, t0, t0.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, "j1", j.ID)
	})
}

func TestGet_NotFound(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo JobRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, newJob("j1", domain.CategoryAccount, t0)))

		_, err := repo.Get(ctx, domain.CategoryAccount, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		// a job is only visible through its own category
		_, err = repo.Get(ctx, domain.CategoryStorage, "j1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		assert.ErrorIs(t, repo.Complete(ctx, "missing", t0), domain.ErrNotFound)
	})
}

func TestRetryLifecycle(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo JobRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, newJob("j1", domain.CategoryAccount, t0)))

		j, err := repo.Claim(ctx, domain.CategoryAccount, t0, t0.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, j)

		require.NoError(t, repo.ScheduleRetry(ctx, j.ID, "smtp down", t0.Add(2*time.Second)))

		got, err := repo.Get(ctx, domain.CategoryAccount, "j1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDelayed, got.Status)
		require.NotNil(t, got.FailedReason)
		assert.Equal(t, "smtp down", *got.FailedReason)

		n, err := repo.PromoteDue(ctx, t0.Add(time.Second))
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = repo.PromoteDue(ctx, t0.Add(2*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		j, err = repo.Claim(ctx, domain.CategoryAccount, t0.Add(2*time.Second), t0.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, j)
		assert.Equal(t, 2, j.AttemptsMade)

		require.NoError(t, repo.Complete(ctx, j.ID, t0.Add(3*time.Second)))
		got, err = repo.Get(ctx, domain.CategoryAccount, "j1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, got.Status)
		assert.Nil(t, got.FailedReason)
		require.NotNil(t, got.FinishedAt)
	})
}

func TestRecoverStalled(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo JobRepository) {
		ctx := context.Background()
		require.NoError(t, repo.Create(ctx, newJob("j1", domain.CategoryProject, t0)))

		// first attempt stalls: back to waiting
		_, err := repo.Claim(ctx, domain.CategoryProject, t0, t0.Add(time.Second))
		require.NoError(t, err)
		n, err := repo.RecoverStalled(ctx, t0.Add(2*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := repo.Get(ctx, domain.CategoryProject, "j1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusWaiting, got.Status)

		// second (final) attempt stalls: failed
		_, err = repo.Claim(ctx, domain.CategoryProject, t0.Add(2*time.Second), t0.Add(3*time.Second))
		require.NoError(t, err)
		n, err = repo.RecoverStalled(ctx, t0.Add(4*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err = repo.Get(ctx, domain.CategoryProject, "j1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, got.Status)
		require.NotNil(t, got.FailedReason)
		assert.Equal(t, stalledReason, *got.FailedReason)
	})
}

func TestCountsCleanAndTrim(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo JobRepository) {
		ctx := context.Background()
		cat := domain.CategoryStorage

		for i := 0; i < 5; i++ {
			id := fmt.Sprintf("j%d", i)
			require.NoError(t, repo.Create(ctx, newJob(id, cat, t0)))
			_, err := repo.Claim(ctx, cat, t0, t0.Add(time.Minute))
			require.NoError(t, err)
			finished := t0.Add(time.Duration(i) * time.Minute)
			if i < 3 {
				require.NoError(t, repo.Complete(ctx, id, finished))
			} else {
				require.NoError(t, repo.Fail(ctx, id, "boom", finished))
			}
		}
		require.NoError(t, repo.Create(ctx, newJob("waiting", cat, t0)))

		counts, err := repo.Counts(ctx, cat)
		require.NoError(t, err)
		assert.Equal(t, 3, counts[domain.StatusCompleted])
		assert.Equal(t, 2, counts[domain.StatusFailed])
		assert.Equal(t, 1, counts[domain.StatusWaiting])

		// completed j0 (t0) and j1 (t0+1m) are older than the cutoff; limit 1 takes the newest
		n, err := repo.Clean(ctx, cat, domain.StatusCompleted, t0.Add(90*time.Second), 1)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = repo.Get(ctx, cat, "j1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.Get(ctx, cat, "j0")
		assert.NoError(t, err)

		// keep 1 newest completed job: j2 survives, j0 goes
		n, err = repo.TrimCompleted(ctx, cat, 1, time.Hour, t0.Add(5*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = repo.Get(ctx, cat, "j2")
		assert.NoError(t, err)

		// age limit removes the rest
		n, err = repo.TrimCompleted(ctx, cat, 100, time.Minute, t0.Add(10*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		// failed jobs are untouched by trimming
		counts, err = repo.Counts(ctx, cat)
		require.NoError(t, err)
		assert.Equal(t, 2, counts[domain.StatusFailed])
		assert.Zero(t, counts[domain.StatusCompleted])
	})
}

func TestSQLite_StateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	ctx := context.Background()
	cat := domain.CategoryAccount

	repo, err := NewSQLiteJobRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, newJob("stalled", cat, t0.Add(-2*time.Second))))
	require.NoError(t, repo.Create(ctx, newJob("delayed", cat, t0.Add(-time.Second))))
	require.NoError(t, repo.Create(ctx, newJob("waiting", cat, t0)))
	require.NoError(t, repo.SetPaused(ctx, domain.CategoryPayment, true))

	// stalled: claimed with a short lease that expires while the process is down
	j, err := repo.Claim(ctx, cat, t0, t0.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, "stalled", j.ID)

	j, err = repo.Claim(ctx, cat, t0, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, "delayed", j.ID)
	require.NoError(t, repo.ScheduleRetry(ctx, j.ID, "smtp down", t0.Add(10*time.Second)))

	require.NoError(t, repo.Close())

	repo, err = NewSQLiteJobRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	want := map[string]struct {
		status   domain.JobStatus
		attempts int
	}{
		"stalled": {domain.StatusActive, 1},
		"delayed": {domain.StatusDelayed, 1},
		"waiting": {domain.StatusWaiting, 0},
	}
	for id, w := range want {
		got, err := repo.Get(ctx, cat, id)
		require.NoError(t, err, id)
		assert.Equal(t, w.status, got.Status, id)
		assert.Equal(t, w.attempts, got.AttemptsMade, id)
		assert.Equal(t, "a@x.io", got.Payload.String("to"), id)
		assert.Equal(t, time.UTC, got.EnqueuedAt.Location(), id)
	}
	delayed, err := repo.Get(ctx, cat, "delayed")
	require.NoError(t, err)
	require.NotNil(t, delayed.FailedReason)
	assert.Equal(t, "smtp down", *delayed.FailedReason)

	paused, err := repo.IsPaused(ctx, domain.CategoryPayment)
	require.NoError(t, err)
	assert.True(t, paused)

	// the maintenance steps pick both up after the restart
	later := t0.Add(11 * time.Second)
	n, err := repo.RecoverStalled(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.PromoteDue(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	attempts := map[string]int{}
	for {
		j, err := repo.Claim(ctx, cat, later, later.Add(time.Minute))
		require.NoError(t, err)
		if j == nil {
			break
		}
		attempts[j.ID] = j.AttemptsMade
	}
	assert.Equal(t, map[string]int{"stalled": 2, "delayed": 2, "waiting": 1}, attempts)
}
