package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter backed by Redis, for deployments
// running more than one API instance. Each key counts attempts with INCR
// and expires with the window.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	prefix string
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client, cfg Config) *RedisLimiter {
	if cfg.Attempts <= 0 {
		cfg = DefaultConfig()
	}
	return &RedisLimiter{
		client: client,
		cfg:    cfg,
		prefix: "ratelimit:",
	}
}

// Allow consumes one attempt for key within the current fixed window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := int64(l.cfg.Window / time.Second)
	bucket := time.Now().Unix() / window
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, bucket)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit incr: %w", err)
	}

	return count.Val() <= int64(l.cfg.Attempts), nil
}
