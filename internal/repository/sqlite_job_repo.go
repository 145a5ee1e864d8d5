package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

// SQLiteJobRepository implements JobRepository on a single SQLite file.
// Timestamps are stored as unix nanoseconds.
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewSQLiteJobRepository opens (or creates) the database at path and
// initialises the schema.
func NewSQLiteJobRepository(path string) (*SQLiteJobRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; claims rely on it
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &SQLiteJobRepository{db: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return repo, nil
}

func (r *SQLiteJobRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteJobRepository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS email_jobs (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		category TEXT NOT NULL,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts_made INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL,
		failed_reason TEXT,
		run_at INTEGER NOT NULL,
		lease_until INTEGER,
		enqueued_at INTEGER NOT NULL,
		processed_at INTEGER,
		finished_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_email_jobs_claim ON email_jobs(category, status, run_at, seq);
	CREATE INDEX IF NOT EXISTS idx_email_jobs_finished ON email_jobs(category, status, finished_at);

	CREATE TABLE IF NOT EXISTS queue_state (
		category TEXT PRIMARY KEY,
		paused INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteJobRepository) Create(ctx context.Context, j *domain.Job) error {
	payload, err := json.Marshal(j.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO email_jobs (id, seq, category, type, payload, status, attempts_made, max_attempts, run_at, enqueued_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM email_jobs), ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, string(j.Category), string(j.Type), string(payload), string(j.Status),
		j.AttemptsMade, j.MaxAttempts, j.RunAt.UnixNano(), j.EnqueuedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepository) Claim(ctx context.Context, category domain.Category, now, leaseUntil time.Time) (*domain.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var paused bool
	err = tx.QueryRowContext(ctx, `SELECT paused FROM queue_state WHERE category = ?`, string(category)).Scan(&paused)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read paused flag: %w", err)
	}
	if paused {
		return nil, nil
	}

	var id string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM email_jobs
		WHERE category = ? AND status = 'waiting' AND run_at <= ?
		ORDER BY run_at ASC, seq ASC
		LIMIT 1`, string(category), now.UnixNano()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find claimable job: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE email_jobs
		SET status = 'active', attempts_made = attempts_made + 1, processed_at = ?, lease_until = ?
		WHERE id = ?`, now.UnixNano(), leaseUntil.UnixNano(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	j, err := scanSQLiteJob(tx.QueryRowContext(ctx, sqliteSelect+` WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to reload claimed job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return j, nil
}

func (r *SQLiteJobRepository) Complete(ctx context.Context, id string, finishedAt time.Time) error {
	return r.execOne(ctx, `
		UPDATE email_jobs
		SET status = 'completed', finished_at = ?, lease_until = NULL, failed_reason = NULL
		WHERE id = ?`, finishedAt.UnixNano(), id)
}

func (r *SQLiteJobRepository) Fail(ctx context.Context, id, reason string, finishedAt time.Time) error {
	return r.execOne(ctx, `
		UPDATE email_jobs
		SET status = 'failed', failed_reason = ?, finished_at = ?, lease_until = NULL
		WHERE id = ?`, reason, finishedAt.UnixNano(), id)
}

func (r *SQLiteJobRepository) ScheduleRetry(ctx context.Context, id, reason string, runAt time.Time) error {
	return r.execOne(ctx, `
		UPDATE email_jobs
		SET status = 'delayed', failed_reason = ?, run_at = ?, lease_until = NULL
		WHERE id = ?`, reason, runAt.UnixNano(), id)
}

func (r *SQLiteJobRepository) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	return r.execCount(ctx, `
		UPDATE email_jobs SET status = 'waiting'
		WHERE status = 'delayed' AND run_at <= ?`, now.UnixNano())
}

func (r *SQLiteJobRepository) RecoverStalled(ctx context.Context, now time.Time) (int, error) {
	n := now.UnixNano()
	return r.execCount(ctx, `
		UPDATE email_jobs
		SET status        = CASE WHEN attempts_made >= max_attempts THEN 'failed' ELSE 'waiting' END,
		    failed_reason = CASE WHEN attempts_made >= max_attempts THEN ? ELSE failed_reason END,
		    finished_at   = CASE WHEN attempts_made >= max_attempts THEN ? ELSE finished_at END,
		    run_at        = ?,
		    lease_until   = NULL
		WHERE status = 'active' AND lease_until < ?`, stalledReason, n, n, n)
}

func (r *SQLiteJobRepository) Get(ctx context.Context, category domain.Category, id string) (*domain.Job, error) {
	j, err := scanSQLiteJob(r.db.QueryRowContext(ctx,
		sqliteSelect+` WHERE id = ? AND category = ?`, id, string(category)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

func (r *SQLiteJobRepository) Counts(ctx context.Context, category domain.Category) (map[domain.JobStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM email_jobs
		WHERE category = ? GROUP BY status`, string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[domain.JobStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counts: %w", err)
	}
	return counts, nil
}

func (r *SQLiteJobRepository) Clean(ctx context.Context, category domain.Category, status domain.JobStatus, olderThan time.Time, limit int) (int, error) {
	return r.execCount(ctx, `
		DELETE FROM email_jobs WHERE id IN (
			SELECT id FROM email_jobs
			WHERE category = ? AND status = ? AND finished_at <= ?
			ORDER BY finished_at DESC
			LIMIT ?
		)`, string(category), string(status), olderThan.UnixNano(), limit)
}

func (r *SQLiteJobRepository) TrimCompleted(ctx context.Context, category domain.Category, keep int, maxAge time.Duration, now time.Time) (int, error) {
	return r.execCount(ctx, `
		DELETE FROM email_jobs WHERE id IN (
			SELECT id FROM (
				SELECT id, finished_at,
				       ROW_NUMBER() OVER (ORDER BY finished_at DESC) AS rn
				FROM email_jobs
				WHERE category = ? AND status = 'completed'
			)
			WHERE rn > ? OR finished_at < ?
		)`, string(category), keep, now.Add(-maxAge).UnixNano())
}

func (r *SQLiteJobRepository) SetPaused(ctx context.Context, category domain.Category, paused bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO queue_state (category, paused) VALUES (?, ?)
		ON CONFLICT(category) DO UPDATE SET paused = excluded.paused`,
		string(category), paused)
	if err != nil {
		return fmt.Errorf("failed to set paused flag: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepository) IsPaused(ctx context.Context, category domain.Category) (bool, error) {
	var paused bool
	err := r.db.QueryRowContext(ctx,
		`SELECT paused FROM queue_state WHERE category = ?`, string(category)).Scan(&paused)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read paused flag: %w", err)
	}
	return paused, nil
}

func (r *SQLiteJobRepository) execOne(ctx context.Context, query string, args ...any) error {
	n, err := r.execCount(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SQLiteJobRepository) execCount(ctx context.Context, query string, args ...any) (int, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

const sqliteSelect = `
	SELECT id, category, type, payload, status, attempts_made, max_attempts,
	       failed_reason, run_at, lease_until, enqueued_at, processed_at, finished_at
	FROM email_jobs`

func scanSQLiteJob(row *sql.Row) (*domain.Job, error) {
	var (
		j                               domain.Job
		category, typ, payload, status  string
		failedReason                    sql.NullString
		runAt, enqueuedAt               int64
		leaseUntil, processed, finished sql.NullInt64
	)
	err := row.Scan(
		&j.ID, &category, &typ, &payload, &status,
		&j.AttemptsMade, &j.MaxAttempts, &failedReason,
		&runAt, &leaseUntil, &enqueuedAt, &processed, &finished,
	)
	if err != nil {
		return nil, err
	}

	j.Category = domain.Category(category)
	j.Type = domain.EmailType(typ)
	j.Status = domain.JobStatus(status)
	if err := json.Unmarshal([]byte(payload), &j.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if failedReason.Valid {
		s := failedReason.String
		j.FailedReason = &s
	}
	j.RunAt = time.Unix(0, runAt).UTC()
	j.EnqueuedAt = time.Unix(0, enqueuedAt).UTC()
	j.LeaseUntil = nullTime(leaseUntil)
	j.ProcessedAt = nullTime(processed)
	j.FinishedAt = nullTime(finished)
	return &j, nil
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

var _ JobRepository = (*SQLiteJobRepository)(nil)
