// Package ratelimit throttles anonymous submissions per source address.
// Anonymity cuts both ways: without accounts, the submit endpoint is an open
// write path and needs its own abuse control.
package ratelimit

import (
	"context"
	"time"
)

// Limiter answers whether one more request from key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config bounds a sliding window.
type Config struct {
	Limit  int
	Window time.Duration
}
