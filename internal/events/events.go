// Package events publishes job lifecycle transitions to interested consumers.
package events

import (
	"context"
	"time"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

// Event is one job state transition.
type Event struct {
	JobID    string           `json:"jobId"`
	Category domain.Category  `json:"category"`
	Type     domain.EmailType `json:"type"`
	Status   domain.JobStatus `json:"status"`
	Attempt  int              `json:"attempt"`
	Reason   string           `json:"reason,omitempty"`
	At       time.Time        `json:"at"`
}

// FromJob builds the event for job having moved to status.
func FromJob(job *domain.Job, status domain.JobStatus, reason string, at time.Time) Event {
	return Event{
		JobID:    job.ID,
		Category: job.Category,
		Type:     job.Type,
		Status:   status,
		Attempt:  job.AttemptsMade,
		Reason:   reason,
		At:       at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                        { return nil }
