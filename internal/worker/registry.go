package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
	"github.com/notifyhub/mail-dispatcher/internal/events"
	"github.com/notifyhub/mail-dispatcher/internal/queue"
	"github.com/notifyhub/mail-dispatcher/internal/ratelimiter"
	"github.com/notifyhub/mail-dispatcher/internal/repository"
)

// Config tunes the pools and the maintenance loop.
type Config struct {
	Concurrency         int
	RatePerSec          int
	PollInterval        time.Duration
	JobTimeout          time.Duration
	MaintenanceInterval time.Duration
	Queue               queue.Options
}

func DefaultConfig() Config {
	return Config{
		Concurrency:         2,
		RatePerSec:          2,
		PollInterval:        time.Second,
		JobTimeout:          70 * time.Second,
		MaintenanceInterval: time.Second,
		Queue:               queue.DefaultOptions(),
	}
}

// Registry owns one queue and one worker pool per category plus the shared
// maintenance loop. It is the entry point for enqueueing and administration.
type Registry struct {
	queues     map[domain.Category]*queue.CategoryQueue
	pools      []*Pool
	maintainer *Maintainer
	publisher  events.Publisher
	logger     *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running sync.WaitGroup
}

func NewRegistry(
	repo repository.JobRepository,
	dispatch Dispatcher,
	mailer Mailer,
	publisher events.Publisher,
	cfg Config,
	logger *zap.Logger,
	hooks MetricHooks,
) *Registry {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	limiter := ratelimiter.New(cfg.RatePerSec, domain.Categories)

	r := &Registry{
		queues:    make(map[domain.Category]*queue.CategoryQueue, len(domain.Categories)),
		publisher: publisher,
		logger:    logger,
	}
	ordered := make([]*queue.CategoryQueue, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		q := queue.New(c, repo, cfg.Queue, logger)
		r.queues[c] = q
		ordered = append(ordered, q)
		r.pools = append(r.pools, NewPool(q, dispatch, mailer, limiter, publisher, cfg, logger, hooks))
	}
	r.maintainer = NewMaintainer(repo, ordered, cfg.MaintenanceInterval, logger, hooks)
	return r
}

// Start launches every pool and the maintenance loop.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)

	for _, p := range r.pools {
		p.Start(ctx)
	}
	r.running.Add(1)
	go func() {
		defer r.running.Done()
		r.maintainer.Run(ctx)
	}()
	r.logger.Info("worker pools started", zap.Int("categories", len(r.pools)))
}

// Stop stops claiming new jobs and waits for in-flight jobs to finish, or
// for ctx to expire, whichever comes first.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		for _, p := range r.pools {
			p.Wait()
		}
		r.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("worker pools drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight jobs: %w", ctx.Err())
	}
}

// Queue returns the queue of category c.
func (r *Registry) Queue(c domain.Category) (*queue.CategoryQueue, error) {
	q, ok := r.queues[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrQueueNotFound, c)
	}
	return q, nil
}

// Enqueue validates the request against the catalogue and stores a job.
func (r *Registry) Enqueue(ctx context.Context, c domain.Category, t domain.EmailType, payload domain.Payload) (*domain.Job, error) {
	if err := domain.ValidateEnqueue(c, t, payload); err != nil {
		return nil, err
	}
	q, err := r.Queue(c)
	if err != nil {
		return nil, err
	}
	job, err := q.Enqueue(ctx, t, payload)
	if err != nil {
		return nil, err
	}
	if err := r.publisher.Publish(ctx, events.FromJob(job, domain.StatusWaiting, "", job.EnqueuedAt)); err != nil {
		r.logger.Warn("failed to publish job event", zap.String("job_id", job.ID), zap.Error(err))
	}
	return job, nil
}

// Stats returns the counts of one queue. A storage failure is logged and
// reported as nil stats rather than an error.
func (r *Registry) Stats(ctx context.Context, c domain.Category) (*domain.QueueStats, error) {
	q, err := r.Queue(c)
	if err != nil {
		return nil, err
	}
	stats, err := q.Stats(ctx)
	if errors.Is(err, domain.ErrBackendUnavailable) {
		r.logger.Error("failed to read queue stats", zap.String("category", string(c)), zap.Error(err))
		return nil, nil
	}
	return stats, err
}

// AllStats returns the stats of every category, keyed by category.
func (r *Registry) AllStats(ctx context.Context) map[domain.Category]*domain.QueueStats {
	out := make(map[domain.Category]*domain.QueueStats, len(r.queues))
	for c := range r.queues {
		stats, _ := r.Stats(ctx, c)
		out[c] = stats
	}
	return out
}

func (r *Registry) Pause(ctx context.Context, c domain.Category) error {
	q, err := r.Queue(c)
	if err != nil {
		return err
	}
	if err := q.Pause(ctx); err != nil {
		return err
	}
	r.logger.Info("queue paused", zap.String("category", string(c)))
	return nil
}

func (r *Registry) Resume(ctx context.Context, c domain.Category) error {
	q, err := r.Queue(c)
	if err != nil {
		return err
	}
	if err := q.Resume(ctx); err != nil {
		return err
	}
	r.logger.Info("queue resumed", zap.String("category", string(c)))
	return nil
}

// Clean removes terminal jobs of c that finished more than grace ago.
func (r *Registry) Clean(ctx context.Context, c domain.Category, grace time.Duration) (domain.CleanResult, error) {
	q, err := r.Queue(c)
	if err != nil {
		return domain.CleanResult{}, err
	}
	res, err := q.Clean(ctx, grace)
	if err != nil {
		return res, err
	}
	r.logger.Info("queue cleaned",
		zap.String("category", string(c)),
		zap.Duration("grace", grace),
		zap.Int("completed", res.Completed),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// GetJob looks a job up by id within category c. An absent job yields
// (nil, nil); an unknown category is still an error.
func (r *Registry) GetJob(ctx context.Context, c domain.Category, id string) (*domain.Job, error) {
	q, err := r.Queue(c)
	if err != nil {
		return nil, err
	}
	job, err := q.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return job, err
}
