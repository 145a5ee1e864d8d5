package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
	"github.com/notifyhub/mail-dispatcher/internal/repository"
	"github.com/notifyhub/mail-dispatcher/internal/retry"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestQueue(t *testing.T) (*CategoryQueue, *repository.MemoryJobRepository, *fakeClock) {
	t.Helper()
	repo := repository.NewMemoryJobRepository()
	clock := &fakeClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	q := New(domain.CategoryAccount, repo, DefaultOptions(), zap.NewNop())
	q.now = clock.now
	return q, repo, clock
}

func resetPayload() domain.Payload {
	return domain.Payload{"to": "a@x.io", "userName": "Ann", "resetLink": "https://x.io/r"}
}

func TestEnqueue_StoresWaitingJobAndSignals(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, domain.TypePasswordReset, resetPayload())
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, domain.StatusWaiting, job.Status)
	assert.Equal(t, 5, job.MaxAttempts)

	select {
	case <-q.Wake():
	default:
		t.Fatal("expected a wake-up signal after enqueue")
	}

	// several enqueues coalesce into one pending signal and never block
	_, _ = q.Enqueue(ctx, domain.TypePasswordReset, resetPayload())
	_, _ = q.Enqueue(ctx, domain.TypePasswordReset, resetPayload())
	assert.Len(t, q.wake, 1)
}

func TestEnqueue_StoreError(t *testing.T) {
	q, repo, _ := newTestQueue(t)
	repo.CreateErr = errors.New("disk full")

	_, err := q.Enqueue(context.Background(), domain.TypePasswordReset, resetPayload())
	assert.ErrorContains(t, err, "disk full")
}

func TestNack_FollowsBackoffUntilExhausted(t *testing.T) {
	q, _, clock := newTestQueue(t)
	ctx := context.Background()
	cause := errors.New("transport down")

	job, err := q.Enqueue(ctx, domain.TypePasswordReset, resetPayload())
	require.NoError(t, err)

	wantDelays := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, want := range wantDelays {
		claimed, err := q.Claim(ctx)
		require.NoError(t, err)
		require.NotNil(t, claimed, "attempt %d", i+1)
		assert.Equal(t, i+1, claimed.AttemptsMade)

		outcome, delay, err := q.Nack(ctx, claimed, cause)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRetry, outcome)
		assert.Equal(t, want, delay)

		// not claimable before the delay elapses
		none, err := q.Claim(ctx)
		require.NoError(t, err)
		assert.Nil(t, none)

		clock.advance(delay)
		_, err = q.repo.PromoteDue(ctx, clock.now())
		require.NoError(t, err)
	}

	last, err := q.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 5, last.AttemptsMade)

	outcome, _, err := q.Nack(ctx, last, cause)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, 5, got.AttemptsMade)
	require.NotNil(t, got.FailedReason)
	assert.Equal(t, "transport down", *got.FailedReason)
}

func TestNack_UsesAttemptBoundStoredOnJob(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()
	cause := errors.New("transport down")

	// enqueued with 5 attempts, then the queue is reconfigured to 2
	job, err := q.Enqueue(ctx, domain.TypePasswordReset, resetPayload())
	require.NoError(t, err)
	q.opts.Policy.MaxAttempts = 2

	claimed, err := q.Claim(ctx)
	require.NoError(t, err)
	claimed.AttemptsMade = 2
	outcome, _, err := q.Nack(ctx, claimed, cause)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetry, outcome, "job keeps the 5 attempts it was enqueued with")

	// a job enqueued under 2 attempts fails at 2 even after raising the option
	short, err := q.Enqueue(ctx, domain.TypePasswordReset, resetPayload())
	require.NoError(t, err)
	assert.Equal(t, 2, short.MaxAttempts)
	q.opts.Policy.MaxAttempts = 5

	short.AttemptsMade = 2
	short.Status = domain.StatusActive
	outcome, _, err = q.Nack(ctx, short, cause)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	got, err := q.Get(ctx, short.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.NotEqual(t, job.ID, short.ID)
}

func TestNack_PermanentFailsImmediately(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, domain.TypePasswordReset, resetPayload())
	require.NoError(t, err)
	claimed, err := q.Claim(ctx)
	require.NoError(t, err)

	outcome, _, err := q.Nack(ctx, claimed, retry.Permanent(domain.ErrUnknownEmailType))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	got, err := q.Get(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, 1, got.AttemptsMade)
}

func TestPauseResume(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Pause(ctx))
	_, err := q.Enqueue(ctx, domain.TypePasswordReset, resetPayload())
	require.NoError(t, err)

	job, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, job, "paused queue must not hand out jobs")

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Paused)
	assert.Equal(t, 1, stats.Waiting)

	<-q.Wake()
	require.NoError(t, q.Resume(ctx))
	select {
	case <-q.Wake():
	default:
		t.Fatal("resume should wake idle workers")
	}

	job, err = q.Claim(ctx)
	require.NoError(t, err)
	assert.NotNil(t, job)
}

func TestStats_BackendUnavailable(t *testing.T) {
	q, repo, _ := newTestQueue(t)
	repo.CountsErr = errors.New("connection refused")

	stats, err := q.Stats(context.Background())
	assert.Nil(t, stats)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestClean_GraceWindow(t *testing.T) {
	q, _, clock := newTestQueue(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, domain.TypePasswordReset, resetPayload())
		require.NoError(t, err)
	}
	done, _ := q.Claim(ctx)
	require.NoError(t, q.Ack(ctx, done))
	bad, _ := q.Claim(ctx)
	_, _, err := q.Nack(ctx, bad, retry.Permanent(errors.New("bad payload")))
	require.NoError(t, err)

	clock.advance(30 * time.Minute)

	// within the default one-hour grace nothing goes
	res, err := q.Clean(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, domain.CleanResult{}, res)

	// grace 0 removes every finished job, waiting work stays
	res, err = q.Clean(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.CleanResult{Completed: 1, Failed: 1}, res)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Waiting)
	assert.Zero(t, stats.Completed)
	assert.Zero(t, stats.Failed)
}

func TestGet_OtherCategory(t *testing.T) {
	q, repo, _ := newTestQueue(t)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, domain.TypePasswordReset, resetPayload())
	require.NoError(t, err)

	other := New(domain.CategoryPayment, repo, DefaultOptions(), zap.NewNop())
	_, err = other.Get(ctx, job.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
