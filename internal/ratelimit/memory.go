package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryLimiter implements a sliding-window limiter over per-key timestamp
// lists. Single-process only; deployments with multiple replicas use
// RedisLimiter instead.
type InMemoryLimiter struct {
	mu      sync.Mutex
	cfg     Config
	buckets map[string][]time.Time
	clock   func() time.Time
}

func NewInMemoryLimiter(cfg Config) *InMemoryLimiter {
	return &InMemoryLimiter{
		cfg:     cfg,
		buckets: make(map[string][]time.Time),
		clock:   time.Now,
	}
}

func (l *InMemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	cutoff := now.Add(-l.cfg.Window)

	kept := l.buckets[key][:0]
	for _, ts := range l.buckets[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.cfg.Limit {
		l.buckets[key] = kept
		return false, nil
	}
	l.buckets[key] = append(kept, now)
	return true, nil
}
