package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
)

// Slot identifies one of the two outbound credential/identity pairs.
type Slot int

const (
	SlotPrimary Slot = iota
	SlotSecondary
)

func (s Slot) String() string {
	if s == SlotSecondary {
		return "secondary"
	}
	return "primary"
}

// CounterStore keeps per-day send counters. Keys are scoped by the UTC date,
// so a new day starts both slots at zero.
type CounterStore interface {
	Counts(ctx context.Context, day string) (primary, secondary int, err error)
	Incr(ctx context.Context, day string, slot Slot) (int, error)
}

// Usage is the quota snapshot reported to operators.
type Usage struct {
	Date            string `json:"date"`
	EmailsSentToday int    `json:"emailsSentToday"`
	DailyLimit      int    `json:"dailyLimit"`
	PrimarySent     int    `json:"primarySent"`
	SecondarySent   int    `json:"secondarySent"`
	SecondaryLimit  int    `json:"secondaryLimit,omitempty"`
	ActiveSlot      string `json:"activeSlot"`
	CurrentFrom     string `json:"currentFrom"`
}

// Quota decides which slot sends next. The primary slot is used until its
// counter for the day reaches the daily limit; the secondary takes over for
// the rest of the day. A secondary limit of 0 means unbounded.
type Quota struct {
	store          CounterStore
	dailyLimit     int
	secondaryLimit int
	from           [2]string
	now            func() time.Time
}

func NewQuota(store CounterStore, dailyLimit, secondaryLimit int, primaryFrom, secondaryFrom string) *Quota {
	return &Quota{
		store:          store,
		dailyLimit:     dailyLimit,
		secondaryLimit: secondaryLimit,
		from:           [2]string{primaryFrom, secondaryFrom},
		now:            time.Now,
	}
}

func (q *Quota) day() string {
	return q.now().UTC().Format(time.DateOnly)
}

// Active re-reads today's counters and returns the slot to send with and the
// UTC day the send is charged to. Pass that day to Record.
func (q *Quota) Active(ctx context.Context) (Slot, string, error) {
	day := q.day()
	p, s, err := q.store.Counts(ctx, day)
	if err != nil {
		return SlotPrimary, day, fmt.Errorf("read quota counters: %w", err)
	}
	slot, err := q.pick(p, s)
	return slot, day, err
}

func (q *Quota) pick(primary, secondary int) (Slot, error) {
	if primary < q.dailyLimit {
		return SlotPrimary, nil
	}
	if q.secondaryLimit > 0 && secondary >= q.secondaryLimit {
		return SlotSecondary, domain.ErrQuotaExhausted
	}
	return SlotSecondary, nil
}

// Record counts one successful send against slot on day.
func (q *Quota) Record(ctx context.Context, day string, slot Slot) (int, error) {
	n, err := q.store.Incr(ctx, day, slot)
	if err != nil {
		return 0, fmt.Errorf("increment %s counter: %w", slot, err)
	}
	return n, nil
}

// From returns the sender identity of slot.
func (q *Quota) From(slot Slot) string {
	return q.from[slot]
}

func (q *Quota) Usage(ctx context.Context) (*Usage, error) {
	day := q.day()
	p, s, err := q.store.Counts(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("read quota counters: %w", err)
	}
	slot, _ := q.pick(p, s)
	return &Usage{
		Date:            day,
		EmailsSentToday: p + s,
		DailyLimit:      q.dailyLimit,
		PrimarySent:     p,
		SecondarySent:   s,
		SecondaryLimit:  q.secondaryLimit,
		ActiveSlot:      slot.String(),
		CurrentFrom:     q.from[slot],
	}, nil
}
