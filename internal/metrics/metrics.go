package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
	"github.com/notifyhub/mail-dispatcher/internal/sender"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	JobsCompleted *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobsRetried   *prometheus.CounterVec
	JobLatency    *prometheus.HistogramVec
	QueueJobs     *prometheus.GaugeVec
	EmailsSent    *prometheus.CounterVec
	SendErrors    *prometheus.CounterVec
	SendLatency   *prometheus.HistogramVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_jobs_completed_total",
			Help: "Jobs whose email was delivered.",
		}, []string{"category"}),

		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_jobs_failed_total",
			Help: "Jobs failed permanently (attempts exhausted or non-retryable error).",
		}, []string{"category"}),

		JobsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_jobs_retried_total",
			Help: "Failed attempts that were rescheduled with backoff.",
		}, []string{"category"}),

		JobLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mail_job_processing_seconds",
			Help:    "Processing latency from claim to delivery ack.",
			Buckets: prometheus.DefBuckets,
		}, []string{"category"}),

		QueueJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mail_queue_jobs",
			Help: "Jobs per category and status, sampled by the maintenance loop.",
		}, []string{"category", "status"}),

		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_emails_sent_total",
			Help: "Emails accepted by the outbound transport, per credential slot.",
		}, []string{"slot"}),

		SendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_send_errors_total",
			Help: "Outbound transport failures, per credential slot.",
		}, []string{"slot"}),

		SendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mail_send_seconds",
			Help:    "Outbound transport call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"slot"}),
	}

	reg.MustRegister(
		m.JobsCompleted,
		m.JobsFailed,
		m.JobsRetried,
		m.JobLatency,
		m.QueueJobs,
		m.EmailsSent,
		m.SendErrors,
		m.SendLatency,
	)

	return m
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
// Centralises the prometheus observation calls so the worker stays import-free.
func (m *Metrics) WorkerHooks() (
	onCompleted func(domain.Category, time.Duration),
	onFailed func(domain.Category),
	onRetry func(domain.Category),
) {
	onCompleted = func(c domain.Category, latency time.Duration) {
		m.JobsCompleted.WithLabelValues(string(c)).Inc()
		m.JobLatency.WithLabelValues(string(c)).Observe(latency.Seconds())
	}
	onFailed = func(c domain.Category) {
		m.JobsFailed.WithLabelValues(string(c)).Inc()
	}
	onRetry = func(c domain.Category) {
		m.JobsRetried.WithLabelValues(string(c)).Inc()
	}
	return
}

func (m *Metrics) SenderHooks() sender.Hooks {
	return sender.Hooks{
		OnDelivered: func(slot sender.Slot, latency time.Duration) {
			m.EmailsSent.WithLabelValues(slot.String()).Inc()
			m.SendLatency.WithLabelValues(slot.String()).Observe(latency.Seconds())
		},
		OnError: func(slot sender.Slot) {
			m.SendErrors.WithLabelValues(slot.String()).Inc()
		},
	}
}

// ObserveQueue records a stats snapshot of one category.
func (m *Metrics) ObserveQueue(category domain.Category, s *domain.QueueStats) {
	c := string(category)
	m.QueueJobs.WithLabelValues(c, string(domain.StatusWaiting)).Set(float64(s.Waiting))
	m.QueueJobs.WithLabelValues(c, string(domain.StatusActive)).Set(float64(s.Active))
	m.QueueJobs.WithLabelValues(c, string(domain.StatusDelayed)).Set(float64(s.Delayed))
	m.QueueJobs.WithLabelValues(c, string(domain.StatusCompleted)).Set(float64(s.Completed))
	m.QueueJobs.WithLabelValues(c, string(domain.StatusFailed)).Set(float64(s.Failed))
}
