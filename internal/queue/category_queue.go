// Package queue binds a category to the durable job store.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
	"github.com/notifyhub/mail-dispatcher/internal/repository"
	"github.com/notifyhub/mail-dispatcher/internal/retry"
)

// cleanLimit bounds how many jobs of each terminal status one Clean removes.
const cleanLimit = 100

// Options are the job options applied to everything a queue stores.
type Options struct {
	Policy           retry.Policy
	Lease            time.Duration
	KeepCompleted    int
	KeepCompletedAge time.Duration
}

// DefaultOptions: 5 attempts from a 2s backoff, last 100 completed jobs
// kept for at most an hour, failed jobs kept indefinitely.
func DefaultOptions() Options {
	return Options{
		Policy:           retry.Default,
		Lease:            2 * time.Minute,
		KeepCompleted:    100,
		KeepCompletedAge: time.Hour,
	}
}

// Outcome is what happened to a job after a failed attempt.
type Outcome int

const (
	OutcomeRetry Outcome = iota
	OutcomeFailed
)

// CategoryQueue is the named queue for one category. Idle workers block on
// Wake() and are signalled whenever new work becomes claimable.
type CategoryQueue struct {
	category domain.Category
	repo     repository.JobRepository
	opts     Options
	wake     chan struct{}
	now      func() time.Time
	logger   *zap.Logger
}

func New(category domain.Category, repo repository.JobRepository, opts Options, logger *zap.Logger) *CategoryQueue {
	return &CategoryQueue{
		category: category,
		repo:     repo,
		opts:     opts,
		wake:     make(chan struct{}, 1),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With(zap.String("category", string(category))),
	}
}

func (q *CategoryQueue) Category() domain.Category { return q.category }
func (q *CategoryQueue) Options() Options { return q.opts }

// Wake returns the channel idle workers wait on.
func (q *CategoryQueue) Wake() <-chan struct{} { return q.wake }

// Notify signals one idle worker without blocking.
func (q *CategoryQueue) Notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Enqueue stores a new waiting job. The caller validates the type against
// the catalogue first.
func (q *CategoryQueue) Enqueue(ctx context.Context, t domain.EmailType, payload domain.Payload) (*domain.Job, error) {
	now := q.now()
	job := &domain.Job{
		ID:          uuid.NewString(),
		Category:    q.category,
		Type:        t,
		Payload:     payload,
		Status:      domain.StatusWaiting,
		MaxAttempts: q.opts.Policy.MaxAttempts,
		RunAt:       now,
		EnqueuedAt:  now,
	}
	if err := q.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue %s job: %w", q.category, err)
	}
	q.Notify()

	q.logger.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("type", string(t)),
	)
	return job, nil
}

// Claim leases the next waiting job, or returns nil when there is none or the
// queue is paused.
func (q *CategoryQueue) Claim(ctx context.Context) (*domain.Job, error) {
	now := q.now()
	return q.repo.Claim(ctx, q.category, now, now.Add(q.opts.Lease))
}

// Ack marks a job completed.
func (q *CategoryQueue) Ack(ctx context.Context, job *domain.Job) error {
	return q.repo.Complete(ctx, job.ID, q.now())
}

// Nack records a failed attempt. The job is delayed for another attempt while
// the policy allows it and failed otherwise. The attempt bound stored on the
// job wins over the queue's current options.
func (q *CategoryQueue) Nack(ctx context.Context, job *domain.Job, cause error) (Outcome, time.Duration, error) {
	policy := q.opts.Policy
	if job.MaxAttempts > 0 {
		policy.MaxAttempts = job.MaxAttempts
	}
	delay, again := policy.Decide(job.AttemptsMade, cause)
	if !again {
		return OutcomeFailed, 0, q.repo.Fail(ctx, job.ID, cause.Error(), q.now())
	}
	return OutcomeRetry, delay, q.repo.ScheduleRetry(ctx, job.ID, cause.Error(), q.now().Add(delay))
}

// Stats returns per-status counts. Storage failures surface as
// domain.ErrBackendUnavailable.
func (q *CategoryQueue) Stats(ctx context.Context) (*domain.QueueStats, error) {
	counts, err := q.repo.Counts(ctx, q.category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	paused, err := q.repo.IsPaused(ctx, q.category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	return &domain.QueueStats{
		Waiting:   counts[domain.StatusWaiting],
		Active:    counts[domain.StatusActive],
		Completed: counts[domain.StatusCompleted],
		Failed:    counts[domain.StatusFailed],
		Delayed:   counts[domain.StatusDelayed],
		Paused:    paused,
	}, nil
}

func (q *CategoryQueue) Pause(ctx context.Context) error {
	return q.repo.SetPaused(ctx, q.category, true)
}

func (q *CategoryQueue) Resume(ctx context.Context) error {
	if err := q.repo.SetPaused(ctx, q.category, false); err != nil {
		return err
	}
	q.Notify()
	return nil
}

func (q *CategoryQueue) IsPaused(ctx context.Context) (bool, error) {
	return q.repo.IsPaused(ctx, q.category)
}

// Clean removes up to 100 completed and up to 100 failed jobs that finished
// more than grace ago.
func (q *CategoryQueue) Clean(ctx context.Context, grace time.Duration) (domain.CleanResult, error) {
	var res domain.CleanResult
	cutoff := q.now().Add(-grace)

	n, err := q.repo.Clean(ctx, q.category, domain.StatusCompleted, cutoff, cleanLimit)
	if err != nil {
		return res, fmt.Errorf("clean completed: %w", err)
	}
	res.Completed = n

	n, err = q.repo.Clean(ctx, q.category, domain.StatusFailed, cutoff, cleanLimit)
	if err != nil {
		return res, fmt.Errorf("clean failed: %w", err)
	}
	res.Failed = n
	return res, nil
}

// Get looks a job up within this queue only.
func (q *CategoryQueue) Get(ctx context.Context, id string) (*domain.Job, error) {
	return q.repo.Get(ctx, q.category, id)
}

// Trim applies completed-job retention.
func (q *CategoryQueue) Trim(ctx context.Context) (int, error) {
	return q.repo.TrimCompleted(ctx, q.category, q.opts.KeepCompleted, q.opts.KeepCompletedAge, q.now())
}
