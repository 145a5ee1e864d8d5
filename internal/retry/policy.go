// Package retry decides whether a failed job is attempted again and when.
package retry

import (
	"errors"
	"time"
)

// Policy is an exponential backoff schedule bounded by a total attempt count.
// With the defaults a job is tried 5 times, waiting 2s, 4s, 8s and 16s between tries.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Default mirrors the job options every category queue is created with.
var Default = Policy{MaxAttempts: 5, BaseDelay: 2 * time.Second}

// Backoff returns the delay before the next attempt, after attempt number
// attempt (1-based) has failed.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// cap the shift; MaxAttempts keeps real schedules far below this
	shift := attempt - 1
	if shift > 20 {
		shift = 20
	}
	return p.BaseDelay * time.Duration(1<<uint(shift))
}

// Decide reports whether a job that has made attemptsMade attempts and failed
// with err should be retried, and after what delay.
func (p Policy) Decide(attemptsMade int, err error) (time.Duration, bool) {
	if IsPermanent(err) || attemptsMade >= p.MaxAttempts {
		return 0, false
	}
	return p.Backoff(attemptsMade), true
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. errors.Is still sees the cause.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
