package sender

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryCounterStore keeps the counters of the current day in process.
// Counters from an earlier day are discarded on first use of a new one. Days
// only move forward: a call for a day older than the current one reads and
// counts nothing.
type MemoryCounterStore struct {
	mu     sync.Mutex
	day    string
	counts [2]int
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{}
}

func (m *MemoryCounterStore) Counts(_ context.Context, day string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.rollover(day) {
		return 0, 0, nil
	}
	return m.counts[SlotPrimary], m.counts[SlotSecondary], nil
}

func (m *MemoryCounterStore) Incr(_ context.Context, day string, slot Slot) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.rollover(day) {
		return 0, nil
	}
	m.counts[slot]++
	return m.counts[slot], nil
}

// rollover advances to day and reports whether day is the current day.
// Dates are ISO formatted, so string order is chronological. Must be called
// with mu held.
func (m *MemoryCounterStore) rollover(day string) bool {
	if day > m.day {
		m.day = day
		m.counts = [2]int{}
	}
	return day == m.day
}

// counterTTL keeps yesterday's keys around briefly for inspection.
const counterTTL = 48 * time.Hour

// RedisCounterStore shares the counters between processes. Each slot/day
// pair is one key incremented with INCR.
type RedisCounterStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisCounterStore(rdb *redis.Client, prefix string) *RedisCounterStore {
	if prefix == "" {
		prefix = "mail:quota"
	}
	return &RedisCounterStore{rdb: rdb, prefix: prefix}
}

func (r *RedisCounterStore) key(day string, slot Slot) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, day, slot)
}

func (r *RedisCounterStore) Counts(ctx context.Context, day string) (int, int, error) {
	vals, err := r.rdb.MGet(ctx, r.key(day, SlotPrimary), r.key(day, SlotSecondary)).Result()
	if err != nil {
		return 0, 0, err
	}
	p, err := toInt(vals[0])
	if err != nil {
		return 0, 0, err
	}
	s, err := toInt(vals[1])
	if err != nil {
		return 0, 0, err
	}
	return p, s, nil
}

func (r *RedisCounterStore) Incr(ctx context.Context, day string, slot Slot) (int, error) {
	key := r.key(day, slot)
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return 0, fmt.Errorf("parse counter %q: %w", x, err)
		}
		return n, nil
	default:
		return 0, errors.New("unexpected counter value type")
	}
}

var (
	_ CounterStore = (*MemoryCounterStore)(nil)
	_ CounterStore = (*RedisCounterStore)(nil)
)
