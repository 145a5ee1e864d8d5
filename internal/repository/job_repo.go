package repository

import (
	"context"
	"time"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

// JobRepository defines the durable queue storage used by every category queue.
// Implementations: PostgreSQL (pg_job_repo.go), SQLite (sqlite_job_repo.go)
// and an in-memory store (memory_job_repo.go) used by tests and local runs.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error

	// Claim moves the oldest waiting job of an unpaused category to active,
	// increments its attempt count and leases it until leaseUntil.
	// Returns (nil, nil) when nothing is claimable.
	Claim(ctx context.Context, category domain.Category, now, leaseUntil time.Time) (*domain.Job, error)

	Complete(ctx context.Context, id string, finishedAt time.Time) error
	Fail(ctx context.Context, id, reason string, finishedAt time.Time) error
	ScheduleRetry(ctx context.Context, id, reason string, runAt time.Time) error

	// PromoteDue moves delayed jobs whose run time has passed back to waiting.
	PromoteDue(ctx context.Context, now time.Time) (int, error)
	// RecoverStalled returns active jobs with an expired lease to waiting,
	// or fails them when no attempts remain.
	RecoverStalled(ctx context.Context, now time.Time) (int, error)

	Get(ctx context.Context, category domain.Category, id string) (*domain.Job, error)
	Counts(ctx context.Context, category domain.Category) (map[domain.JobStatus]int, error)

	// Clean deletes at most limit jobs in a terminal status finished before olderThan.
	Clean(ctx context.Context, category domain.Category, status domain.JobStatus, olderThan time.Time, limit int) (int, error)
	// TrimCompleted enforces completed-job retention: the newest keep jobs
	// younger than maxAge survive.
	TrimCompleted(ctx context.Context, category domain.Category, keep int, maxAge time.Duration, now time.Time) (int, error)

	SetPaused(ctx context.Context, category domain.Category, paused bool) error
	IsPaused(ctx context.Context, category domain.Category) (bool, error)

	Close() error
}
