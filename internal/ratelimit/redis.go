package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// allowScript trims, counts and records in one atomic step so concurrent
// requests at the window boundary cannot both slip under the limit.
var allowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// RedisLimiter implements the same sliding window over a Redis sorted set so
// the limit holds across replicas. Fails open on Redis errors: losing rate
// limiting briefly is preferable to refusing all submissions.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
}

func NewRedisLimiter(client *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{client: client, cfg: cfg}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	cutoff := now.Add(-l.cfg.Window).UnixNano()

	res, err := allowScript.Run(ctx, l.client,
		[]string{"ratelimit:submit:" + key},
		cutoff,
		l.cfg.Limit,
		now.UnixNano(),
		uuid.NewString(),
		l.cfg.Window.Milliseconds(),
	).Int()
	if err != nil {
		return true, fmt.Errorf("rate limit check: %w", err)
	}
	return res == 1, nil
}
