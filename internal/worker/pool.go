package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
	"github.com/notifyhub/mail-dispatcher/internal/events"
	"github.com/notifyhub/mail-dispatcher/internal/queue"
	"github.com/notifyhub/mail-dispatcher/internal/ratelimiter"
)

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the constructor signatures clean; nil hooks are no-ops.
type MetricHooks struct {
	OnCompleted  func(category domain.Category, latency time.Duration)
	OnFailed     func(category domain.Category)
	OnRetry      func(category domain.Category)
	OnQueueStats func(category domain.Category, stats *domain.QueueStats)
}

func (h MetricHooks) withDefaults() MetricHooks {
	if h.OnCompleted == nil {
		h.OnCompleted = func(domain.Category, time.Duration) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(domain.Category) {}
	}
	if h.OnRetry == nil {
		h.OnRetry = func(domain.Category) {}
	}
	if h.OnQueueStats == nil {
		h.OnQueueStats = func(domain.Category, *domain.QueueStats) {}
	}
	return h
}

// Pool runs the workers of one category queue.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates concurrency identical workers over q. All of them draw
// from the same category limiter.
func NewPool(
	q *queue.CategoryQueue,
	dispatch Dispatcher,
	mailer Mailer,
	limiter *ratelimiter.CategoryLimiters,
	publisher events.Publisher,
	cfg Config,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	hooks = hooks.withDefaults()
	workers := make([]*Worker, cfg.Concurrency)
	for i := range workers {
		log := logger.With(zap.String("category", string(q.Category())), zap.Int("worker_id", i))
		workers[i] = &Worker{
			id:         i,
			q:          q,
			dispatch:   dispatch,
			mailer:     mailer,
			limiter:    limiter,
			publisher:  publisher,
			poll:       cfg.PollInterval,
			jobTimeout: cfg.JobTimeout,
			logger:     log,
			hooks:      hooks,
		}
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// Cancelling ctx stops claiming; in-flight jobs run to completion.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
func (p *Pool) Wait() {
	p.wg.Wait()
}
