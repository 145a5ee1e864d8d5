package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/queue"
	"github.com/notifyhub/mail-dispatcher/internal/repository"
)

// Maintainer is the periodic housekeeping loop shared by all category queues.
// Each tick it
//   - moves delayed jobs whose backoff has elapsed back to waiting,
//   - returns jobs whose lease expired (a crashed or stuck worker) to waiting,
//     failing those with no attempts left,
//   - applies completed-job retention and samples per-queue stats.
//
// Retry times and leases live in the store, so retries survive restarts.
type Maintainer struct {
	repo     repository.JobRepository
	queues   []*queue.CategoryQueue
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	hooks    MetricHooks
}

func NewMaintainer(
	repo repository.JobRepository,
	queues []*queue.CategoryQueue,
	interval time.Duration,
	logger *zap.Logger,
	hooks MetricHooks,
) *Maintainer {
	return &Maintainer{
		repo:     repo,
		queues:   queues,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.Named("maintainer"),
		hooks:    hooks.withDefaults(),
	}
}

// Run ticks every interval until ctx is cancelled.
func (m *Maintainer) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("maintenance worker started", zap.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("maintenance worker stopping")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Maintainer) tick(ctx context.Context) {
	now := m.now()

	promoted, err := m.repo.PromoteDue(ctx, now)
	if err != nil {
		m.logger.Error("promote delayed jobs", zap.Error(err))
	}
	recovered, err := m.repo.RecoverStalled(ctx, now)
	if err != nil {
		m.logger.Error("recover stalled jobs", zap.Error(err))
	}
	if recovered > 0 {
		m.logger.Warn("recovered stalled jobs", zap.Int("count", recovered))
	}
	if promoted > 0 {
		m.logger.Debug("promoted delayed jobs", zap.Int("count", promoted))
	}

	for _, q := range m.queues {
		if promoted > 0 || recovered > 0 {
			q.Notify()
		}
		if n, err := q.Trim(ctx); err != nil {
			m.logger.Error("trim completed jobs", zap.String("category", string(q.Category())), zap.Error(err))
		} else if n > 0 {
			m.logger.Debug("trimmed completed jobs", zap.String("category", string(q.Category())), zap.Int("count", n))
		}
		if stats, err := q.Stats(ctx); err == nil {
			m.hooks.OnQueueStats(q.Category(), stats)
		}
	}
}
