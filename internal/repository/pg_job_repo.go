package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

const jobColumns = `id, category, type, payload, status, attempts_made, max_attempts,
	failed_reason, run_at, lease_until, enqueued_at, processed_at, finished_at`

type pgJobRepository struct {
	pool *pgxpool.Pool
}

// NewPgJobRepository returns a JobRepository backed by PostgreSQL.
// Claims use FOR UPDATE SKIP LOCKED so several processes can share one table.
func NewPgJobRepository(pool *pgxpool.Pool) JobRepository {
	return &pgJobRepository{pool: pool}
}

func (r *pgJobRepository) Create(ctx context.Context, j *domain.Job) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO email_jobs
			(id, category, type, payload, status, attempts_made, max_attempts, run_at, enqueued_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		j.ID, j.Category, j.Type, j.Payload, j.Status, j.AttemptsMade, j.MaxAttempts, j.RunAt, j.EnqueuedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *pgJobRepository) Claim(ctx context.Context, category domain.Category, now, leaseUntil time.Time) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE email_jobs
		SET status = 'active', attempts_made = attempts_made + 1,
		    processed_at = $2, lease_until = $3
		WHERE id = (
			SELECT id FROM email_jobs
			WHERE category = $1
			  AND status = 'waiting'
			  AND run_at <= $2
			  AND NOT EXISTS (SELECT 1 FROM queue_state WHERE category = $1 AND paused)
			ORDER BY run_at, seq
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns, category, now, leaseUntil)

	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return j, nil
}

func (r *pgJobRepository) Complete(ctx context.Context, id string, finishedAt time.Time) error {
	return r.execOne(ctx, `
		UPDATE email_jobs
		SET status = 'completed', finished_at = $1, lease_until = NULL, failed_reason = NULL
		WHERE id = $2`, finishedAt, id)
}

func (r *pgJobRepository) Fail(ctx context.Context, id, reason string, finishedAt time.Time) error {
	return r.execOne(ctx, `
		UPDATE email_jobs
		SET status = 'failed', failed_reason = $1, finished_at = $2, lease_until = NULL
		WHERE id = $3`, reason, finishedAt, id)
}

func (r *pgJobRepository) ScheduleRetry(ctx context.Context, id, reason string, runAt time.Time) error {
	return r.execOne(ctx, `
		UPDATE email_jobs
		SET status = 'delayed', failed_reason = $1, run_at = $2, lease_until = NULL
		WHERE id = $3`, reason, runAt, id)
}

func (r *pgJobRepository) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE email_jobs SET status = 'waiting'
		WHERE status = 'delayed' AND run_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("promote delayed jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgJobRepository) RecoverStalled(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE email_jobs
		SET status        = CASE WHEN attempts_made >= max_attempts THEN 'failed' ELSE 'waiting' END,
		    failed_reason = CASE WHEN attempts_made >= max_attempts THEN $2 ELSE failed_reason END,
		    finished_at   = CASE WHEN attempts_made >= max_attempts THEN $1 ELSE finished_at END,
		    run_at        = $1,
		    lease_until   = NULL
		WHERE status = 'active' AND lease_until < $1`, now, stalledReason)
	if err != nil {
		return 0, fmt.Errorf("recover stalled jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgJobRepository) Get(ctx context.Context, category domain.Category, id string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM email_jobs WHERE id = $1 AND category = $2`, id, category)

	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (r *pgJobRepository) Counts(ctx context.Context, category domain.Category) (map[domain.JobStatus]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM email_jobs
		WHERE category = $1 GROUP BY status`, category)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status domain.JobStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *pgJobRepository) Clean(ctx context.Context, category domain.Category, status domain.JobStatus, olderThan time.Time, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM email_jobs WHERE id IN (
			SELECT id FROM email_jobs
			WHERE category = $1 AND status = $2 AND finished_at <= $3
			ORDER BY finished_at DESC
			LIMIT $4
		)`, category, status, olderThan, limit)
	if err != nil {
		return 0, fmt.Errorf("clean %s jobs: %w", status, err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgJobRepository) TrimCompleted(ctx context.Context, category domain.Category, keep int, maxAge time.Duration, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM email_jobs WHERE id IN (
			SELECT id FROM (
				SELECT id, finished_at,
				       ROW_NUMBER() OVER (ORDER BY finished_at DESC) AS rn
				FROM email_jobs
				WHERE category = $1 AND status = 'completed'
			) ranked
			WHERE rn > $2 OR finished_at < $3
		)`, category, keep, now.Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("trim completed jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgJobRepository) SetPaused(ctx context.Context, category domain.Category, paused bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO queue_state (category, paused, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (category) DO UPDATE SET paused = EXCLUDED.paused, updated_at = NOW()`,
		category, paused)
	if err != nil {
		return fmt.Errorf("set paused: %w", err)
	}
	return nil
}

func (r *pgJobRepository) IsPaused(ctx context.Context, category domain.Category) (bool, error) {
	var paused bool
	err := r.pool.QueryRow(ctx,
		`SELECT paused FROM queue_state WHERE category = $1`, category).Scan(&paused)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read paused flag: %w", err)
	}
	return paused, nil
}

// Close releases the connection pool.
func (r *pgJobRepository) Close() error {
	r.pool.Close()
	return nil
}

// ---- helpers ----

func (r *pgJobRepository) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// scanJob reads a single job row from any pgx row type.
func scanJob(row pgx.Row) (*domain.Job, error) {
	var j domain.Job
	err := row.Scan(
		&j.ID, &j.Category, &j.Type, &j.Payload, &j.Status,
		&j.AttemptsMade, &j.MaxAttempts, &j.FailedReason,
		&j.RunAt, &j.LeaseUntil, &j.EnqueuedAt, &j.ProcessedAt, &j.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
