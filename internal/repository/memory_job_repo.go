package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

// MemoryJobRepository is an in-memory JobRepository. It backs the unit tests
// and QUEUE_BACKEND=memory; it is not durable across restarts.
type MemoryJobRepository struct {
	mu     sync.RWMutex
	jobs   map[string]*domain.Job
	seq    map[string]uint64
	next   uint64
	paused map[domain.Category]bool

	// Optional error overrides, set in tests to simulate failure paths.
	CreateErr error
	ClaimErr  error
	CountsErr error
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{
		jobs:   make(map[string]*domain.Job),
		seq:    make(map[string]uint64),
		paused: make(map[domain.Category]bool),
	}
}

func (m *MemoryJobRepository) Create(_ context.Context, job *domain.Job) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.seq[job.ID] = m.next
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *MemoryJobRepository) Claim(_ context.Context, category domain.Category, now, leaseUntil time.Time) (*domain.Job, error) {
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused[category] {
		return nil, nil
	}

	var candidate *domain.Job
	for _, j := range m.jobs {
		if j.Category != category || j.Status != domain.StatusWaiting || j.RunAt.After(now) {
			continue
		}
		if candidate == nil || m.before(j, candidate) {
			candidate = j
		}
	}
	if candidate == nil {
		return nil, nil
	}

	candidate.Status = domain.StatusActive
	candidate.AttemptsMade++
	processed := now
	lease := leaseUntil
	candidate.ProcessedAt = &processed
	candidate.LeaseUntil = &lease
	return cloneJob(candidate), nil
}

// before orders jobs by run time, then insertion order.
func (m *MemoryJobRepository) before(a, b *domain.Job) bool {
	if !a.RunAt.Equal(b.RunAt) {
		return a.RunAt.Before(b.RunAt)
	}
	return m.seq[a.ID] < m.seq[b.ID]
}

func (m *MemoryJobRepository) Complete(_ context.Context, id string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = domain.StatusCompleted
	j.FinishedAt = &finishedAt
	j.LeaseUntil = nil
	j.FailedReason = nil
	return nil
}

func (m *MemoryJobRepository) Fail(_ context.Context, id, reason string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = domain.StatusFailed
	j.FailedReason = &reason
	j.FinishedAt = &finishedAt
	j.LeaseUntil = nil
	return nil
}

func (m *MemoryJobRepository) ScheduleRetry(_ context.Context, id, reason string, runAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = domain.StatusDelayed
	j.FailedReason = &reason
	j.RunAt = runAt
	j.LeaseUntil = nil
	return nil
}

func (m *MemoryJobRepository) PromoteDue(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.Status == domain.StatusDelayed && !j.RunAt.After(now) {
			j.Status = domain.StatusWaiting
			n++
		}
	}
	return n, nil
}

func (m *MemoryJobRepository) RecoverStalled(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.Status != domain.StatusActive || j.LeaseUntil == nil || !j.LeaseUntil.Before(now) {
			continue
		}
		j.LeaseUntil = nil
		if j.AttemptsMade >= j.MaxAttempts {
			reason := stalledReason
			finished := now
			j.Status = domain.StatusFailed
			j.FailedReason = &reason
			j.FinishedAt = &finished
		} else {
			j.Status = domain.StatusWaiting
			j.RunAt = now
		}
		n++
	}
	return n, nil
}

func (m *MemoryJobRepository) Get(_ context.Context, category domain.Category, id string) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok || j.Category != category {
		return nil, domain.ErrNotFound
	}
	return cloneJob(j), nil
}

func (m *MemoryJobRepository) Counts(_ context.Context, category domain.Category) (map[domain.JobStatus]int, error) {
	if m.CountsErr != nil {
		return nil, m.CountsErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[domain.JobStatus]int)
	for _, j := range m.jobs {
		if j.Category == category {
			counts[j.Status]++
		}
	}
	return counts, nil
}

func (m *MemoryJobRepository) Clean(_ context.Context, category domain.Category, status domain.JobStatus, olderThan time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var eligible []*domain.Job
	for _, j := range m.jobs {
		if j.Category == category && j.Status == status && j.FinishedAt != nil && !j.FinishedAt.After(olderThan) {
			eligible = append(eligible, j)
		}
	}
	sortNewestFirst(eligible)
	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}
	for _, j := range eligible {
		m.remove(j.ID)
	}
	return len(eligible), nil
}

func (m *MemoryJobRepository) TrimCompleted(_ context.Context, category domain.Category, keep int, maxAge time.Duration, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var completed []*domain.Job
	for _, j := range m.jobs {
		if j.Category == category && j.Status == domain.StatusCompleted {
			completed = append(completed, j)
		}
	}
	sortNewestFirst(completed)

	cutoff := now.Add(-maxAge)
	n := 0
	for i, j := range completed {
		if i >= keep || (j.FinishedAt != nil && j.FinishedAt.Before(cutoff)) {
			m.remove(j.ID)
			n++
		}
	}
	return n, nil
}

func (m *MemoryJobRepository) SetPaused(_ context.Context, category domain.Category, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused[category] = paused
	return nil
}

func (m *MemoryJobRepository) IsPaused(_ context.Context, category domain.Category) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused[category], nil
}

func (m *MemoryJobRepository) Close() error { return nil }

// remove must be called with mu held.
func (m *MemoryJobRepository) remove(id string) {
	delete(m.jobs, id)
	delete(m.seq, id)
}

func sortNewestFirst(jobs []*domain.Job) {
	sort.Slice(jobs, func(i, k int) bool {
		return finishedAt(jobs[i]).After(finishedAt(jobs[k]))
	})
}

func finishedAt(j *domain.Job) time.Time {
	if j.FinishedAt == nil {
		return time.Time{}
	}
	return *j.FinishedAt
}

func cloneJob(j *domain.Job) *domain.Job {
	clone := *j
	if j.Payload != nil {
		clone.Payload = make(domain.Payload, len(j.Payload))
		for k, v := range j.Payload {
			clone.Payload[k] = v
		}
	}
	return &clone
}

const stalledReason = "job stalled: lease expired after the final attempt"

var _ JobRepository = (*MemoryJobRepository)(nil)
