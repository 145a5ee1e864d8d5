package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
	"github.com/notifyhub/mail-dispatcher/internal/events"
	"github.com/notifyhub/mail-dispatcher/internal/queue"
	"github.com/notifyhub/mail-dispatcher/internal/ratelimiter"
	"github.com/notifyhub/mail-dispatcher/internal/retry"
	"github.com/notifyhub/mail-dispatcher/internal/sender"
)

// Dispatcher renders the envelope for a job.
type Dispatcher interface {
	Dispatch(category domain.Category, t domain.EmailType, payload domain.Payload) (*domain.Envelope, error)
}

// Mailer delivers a rendered envelope.
type Mailer interface {
	Send(ctx context.Context, env *domain.Envelope) (*sender.Receipt, error)
}

// Worker is a single goroutine that claims jobs from one category queue,
// applies the category's rate limit, renders and delivers the email, and
// hands failures to the queue's retry policy.
type Worker struct {
	id         int
	q          *queue.CategoryQueue
	dispatch   Dispatcher
	mailer     Mailer
	limiter    *ratelimiter.CategoryLimiters
	publisher  events.Publisher
	poll       time.Duration
	jobTimeout time.Duration
	logger     *zap.Logger
	hooks      MetricHooks
}

// Run blocks until ctx is cancelled. A job already claimed is finished on a
// context of its own, so cancellation never interrupts a send.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", zap.Int("id", w.id))
	for {
		if err := w.limiter.Wait(ctx, w.q.Category()); err != nil {
			w.logger.Info("worker stopping", zap.Int("id", w.id))
			return
		}

		job, err := w.q.Claim(ctx)
		if err != nil && ctx.Err() == nil {
			w.logger.Error("failed to claim job", zap.Error(err))
		}
		if job != nil {
			w.process(context.WithoutCancel(ctx), job)
			continue
		}

		if !w.idle(ctx) {
			w.logger.Info("worker stopping", zap.Int("id", w.id))
			return
		}
	}
}

// idle waits for a wake-up signal or the poll interval. It returns false
// once ctx is done.
func (w *Worker) idle(ctx context.Context) bool {
	timer := time.NewTimer(w.poll)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-w.q.Wake():
	case <-timer.C:
	}
	return true
}

func (w *Worker) process(ctx context.Context, job *domain.Job) {
	ctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	start := time.Now()
	log := w.logger.With(
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.Int("attempt", job.AttemptsMade),
	)
	w.publish(ctx, job, domain.StatusActive, "")

	env, err := w.dispatch.Dispatch(job.Category, job.Type, job.Payload)
	if err != nil {
		// Rendering is deterministic; another attempt would fail the same way.
		w.handleFailure(ctx, job, retry.Permanent(err), log)
		return
	}

	receipt, err := w.mailer.Send(ctx, env)
	if err != nil {
		w.handleFailure(ctx, job, err, log)
		return
	}

	if err := w.q.Ack(ctx, job); err != nil {
		log.Error("failed to mark job completed", zap.Error(err))
		return
	}
	elapsed := time.Since(start)
	w.hooks.OnCompleted(job.Category, elapsed)
	w.publish(ctx, job, domain.StatusCompleted, "")

	log.Info("email sent",
		zap.String("to", env.To),
		zap.String("message_id", receipt.MessageID),
		zap.Stringer("slot", receipt.Slot),
		zap.Duration("latency", elapsed),
	)
}

// handleFailure either schedules a retry with exponential backoff (while
// attempts remain and the error is retryable) or fails the job for good.
func (w *Worker) handleFailure(ctx context.Context, job *domain.Job, cause error, log *zap.Logger) {
	outcome, delay, err := w.q.Nack(ctx, job, cause)
	if err != nil {
		log.Error("failed to record attempt failure", zap.NamedError("cause", cause), zap.Error(err))
		return
	}

	switch outcome {
	case queue.OutcomeRetry:
		log.Warn("attempt failed, retry scheduled", zap.Error(cause), zap.Duration("delay", delay))
		w.hooks.OnRetry(job.Category)
		w.publish(ctx, job, domain.StatusDelayed, cause.Error())
	case queue.OutcomeFailed:
		log.Error("job failed permanently", zap.Error(cause), zap.Int("max_attempts", job.MaxAttempts))
		w.hooks.OnFailed(job.Category)
		w.publish(ctx, job, domain.StatusFailed, cause.Error())
	}
}

func (w *Worker) publish(ctx context.Context, job *domain.Job, status domain.JobStatus, reason string) {
	if err := w.publisher.Publish(ctx, events.FromJob(job, status, reason, time.Now())); err != nil {
		w.logger.Warn("failed to publish job event",
			zap.String("job_id", job.ID), zap.String("status", string(status)), zap.Error(err))
	}
}
