package domain

import (
	"fmt"
	"time"
)

// JobStatus tracks the lifecycle of a queued job.
type JobStatus string

const (
	StatusWaiting   JobStatus = "waiting"
	StatusActive    JobStatus = "active"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusDelayed   JobStatus = "delayed"
)

// Payload is the opaque, type-specific data a content builder renders.
type Payload map[string]any

// String returns the field as a string, or "" when absent.
func (p Payload) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Job is a unit of queued work. Category and Type are immutable once enqueued.
type Job struct {
	ID           string     `json:"id"`
	Category     Category   `json:"category"`
	Type         EmailType  `json:"type"`
	Payload      Payload    `json:"payload"`
	Status       JobStatus  `json:"status"`
	AttemptsMade int        `json:"attempts_made"`
	MaxAttempts  int        `json:"max_attempts"`
	FailedReason *string    `json:"failed_reason,omitempty"`
	RunAt        time.Time  `json:"run_at"`
	LeaseUntil   *time.Time `json:"lease_until,omitempty"`
	EnqueuedAt   time.Time  `json:"enqueued_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// JobView is the job lookup contract exposed to the admin surface.
type JobView struct {
	ID           string     `json:"id"`
	Category     Category   `json:"category"`
	Type         EmailType  `json:"type"`
	Payload      Payload    `json:"payload"`
	Status       JobStatus  `json:"status"`
	AttemptsMade int        `json:"attemptsMade"`
	EnqueuedAt   time.Time  `json:"enqueuedAt"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	FailedReason *string    `json:"failedReason,omitempty"`
}

// View returns the operator-facing projection of j, or nil for a nil job.
func (j *Job) View() *JobView {
	if j == nil {
		return nil
	}
	return &JobView{
		ID:           j.ID,
		Category:     j.Category,
		Type:         j.Type,
		Payload:      j.Payload,
		Status:       j.Status,
		AttemptsMade: j.AttemptsMade,
		EnqueuedAt:   j.EnqueuedAt,
		ProcessedAt:  j.ProcessedAt,
		FinishedAt:   j.FinishedAt,
		FailedReason: j.FailedReason,
	}
}

// QueueStats holds per-status job counts for one category queue.
type QueueStats struct {
	Waiting   int  `json:"waiting"`
	Active    int  `json:"active"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Delayed   int  `json:"delayed"`
	Paused    bool `json:"paused"`
}

// Envelope is a fully rendered, ready-to-send message.
type Envelope struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html"`
	Text     string    `json:"text"`
	Category Category  `json:"category"`
	Type     EmailType `json:"type"`
}

// SendEmailRequest is the inbound enqueue payload.
type SendEmailRequest struct {
	Category Category  `json:"category"`
	Type     EmailType `json:"type"`
	Payload  Payload   `json:"payload"`
}

// Validate checks the category/type pairing and payload shape.
func (r *SendEmailRequest) Validate() error {
	return ValidateEnqueue(r.Category, r.Type, r.Payload)
}

// ValidateEnqueue is the admission check applied before a job is stored.
func ValidateEnqueue(category Category, t EmailType, payload Payload) error {
	if !category.IsValid() {
		return ErrQueueNotFound
	}
	if !category.Allows(t) {
		return ErrInvalidEmailType
	}
	if len(payload) == 0 {
		return ErrInvalidPayload
	}
	return nil
}

// SendBatchRequest wraps several enqueue requests.
type SendBatchRequest struct {
	Emails []SendEmailRequest `json:"emails"`
}

// CleanResult reports how many terminal jobs a clean removed.
type CleanResult struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
