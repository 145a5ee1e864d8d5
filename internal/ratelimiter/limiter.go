package ratelimiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

// CategoryLimiters holds one token bucket limiter per category queue.
// Each limiter bounds how many jobs of its category start per second,
// shared by every worker of that category. Burst equals the rate so no
// extra burst capacity is allowed beyond the configured per-second maximum.
type CategoryLimiters struct {
	limiters map[domain.Category]*rate.Limiter
}

// New creates a limiter of ratePerSec job starts per second for each category.
func New(ratePerSec int, categories []domain.Category) *CategoryLimiters {
	r := rate.Limit(ratePerSec)
	cl := &CategoryLimiters{limiters: make(map[domain.Category]*rate.Limiter, len(categories))}
	for _, c := range categories {
		cl.limiters[c] = rate.NewLimiter(r, ratePerSec)
	}
	return cl
}

// Wait blocks until the category's limiter grants a token.
// Returns a non-nil error if ctx is cancelled while waiting or the category
// has no limiter.
func (cl *CategoryLimiters) Wait(ctx context.Context, c domain.Category) error {
	l, ok := cl.limiters[c]
	if !ok {
		return fmt.Errorf("no rate limiter for category %q", c)
	}
	return l.Wait(ctx)
}
