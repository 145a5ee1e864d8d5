package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/dispatch"
	"github.com/notifyhub/mail-dispatcher/internal/domain"
	"github.com/notifyhub/mail-dispatcher/internal/sender"
	"github.com/notifyhub/mail-dispatcher/internal/worker"
)

// MaxBatchSize bounds the number of emails one batch request may enqueue.
const MaxBatchSize = 100

// DefaultCleanGrace is used when a clean request names no grace period.
const DefaultCleanGrace = time.Hour

// UsageReporter exposes the outbound quota state.
type UsageReporter interface {
	Usage(ctx context.Context) (*sender.Usage, error)
}

// RouteLister exposes the dispatcher's routing table.
type RouteLister interface {
	Routes() []dispatch.Route
}

// BatchItemResult is the outcome of one batch entry.
type BatchItemResult struct {
	Index    int              `json:"index"`
	Category domain.Category  `json:"category"`
	Type     domain.EmailType `json:"type"`
	JobID    string           `json:"jobId,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// BatchResult summarises a batch enqueue.
type BatchResult struct {
	Total    int               `json:"total"`
	Accepted int               `json:"accepted"`
	Rejected int               `json:"rejected"`
	Items    []BatchItemResult `json:"items"`
}

// EmailService is the application boundary: producers enqueue through it and
// the admin surface reads and controls the queues through it.
// HTTP handlers and the CLI depend on this service, not on the workers.
type EmailService struct {
	queues *worker.Registry
	usage  UsageReporter
	routes RouteLister
	logger *zap.Logger
}

func NewEmailService(queues *worker.Registry, usage UsageReporter, routes RouteLister, logger *zap.Logger) *EmailService {
	return &EmailService{queues: queues, usage: usage, routes: routes, logger: logger}
}

// Send validates and enqueues a single email job.
func (s *EmailService) Send(ctx context.Context, req domain.SendEmailRequest) (*domain.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.queues.Enqueue(ctx, req.Category, req.Type, req.Payload)
}

// SendBatch enqueues every valid entry independently; invalid entries are
// reported per item and do not reject the rest.
func (s *EmailService) SendBatch(ctx context.Context, reqs []domain.SendEmailRequest) (*BatchResult, error) {
	if len(reqs) == 0 {
		return nil, domain.ErrBatchEmpty
	}
	if len(reqs) > MaxBatchSize {
		return nil, domain.ErrBatchTooLarge
	}

	res := &BatchResult{Total: len(reqs), Items: make([]BatchItemResult, len(reqs))}
	for i, req := range reqs {
		item := BatchItemResult{Index: i, Category: req.Category, Type: req.Type}
		job, err := s.Send(ctx, req)
		if err != nil {
			item.Error = err.Error()
			res.Rejected++
		} else {
			item.JobID = job.ID
			res.Accepted++
		}
		res.Items[i] = item
	}

	if res.Rejected > 0 {
		s.logger.Warn("batch partially rejected",
			zap.Int("total", res.Total), zap.Int("rejected", res.Rejected))
	}
	return res, nil
}

func (s *EmailService) Stats(ctx context.Context, c domain.Category) (*domain.QueueStats, error) {
	return s.queues.Stats(ctx, c)
}

func (s *EmailService) AllStats(ctx context.Context) map[domain.Category]*domain.QueueStats {
	return s.queues.AllStats(ctx)
}

func (s *EmailService) Pause(ctx context.Context, c domain.Category) error {
	return s.queues.Pause(ctx, c)
}

func (s *EmailService) Resume(ctx context.Context, c domain.Category) error {
	return s.queues.Resume(ctx, c)
}

// Clean removes terminal jobs older than grace. A negative grace is rejected.
func (s *EmailService) Clean(ctx context.Context, c domain.Category, grace time.Duration) (domain.CleanResult, error) {
	if grace < 0 {
		return domain.CleanResult{}, fmt.Errorf("%w: grace must not be negative", domain.ErrInvalidPayload)
	}
	return s.queues.Clean(ctx, c, grace)
}

// GetJob returns (nil, nil) when no job with id exists in category c.
func (s *EmailService) GetJob(ctx context.Context, c domain.Category, id string) (*domain.JobView, error) {
	job, err := s.queues.GetJob(ctx, c, id)
	if err != nil {
		return nil, err
	}
	return job.View(), nil
}

func (s *EmailService) Usage(ctx context.Context) (*sender.Usage, error) {
	return s.usage.Usage(ctx)
}

func (s *EmailService) Routes() []dispatch.Route {
	return s.routes.Routes()
}
