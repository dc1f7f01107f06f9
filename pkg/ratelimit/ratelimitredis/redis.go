package ratelimitredis

import (
	"context"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window limiter shared by every instance using the
// same Redis.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	max    int
	window time.Duration
}

func NewLimiter(rdb *redis.Client, name string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		prefix: "jobgrid:ratelimit:" + name + ":",
		max:    limit,
		window: window,
	}
}

func (l *Limiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	k := l.prefix + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return ratelimit.Decision{}, ratelimit.ErrBackend().WithCause(err)
	}

	count := int(incr.Val())
	resetIn := ttl.Val()

	// first hit in the window, or a key that lost its expiry
	if count == 1 || resetIn < 0 {
		if err := l.rdb.PExpire(ctx, k, l.window).Err(); err != nil {
			return ratelimit.Decision{}, ratelimit.ErrBackend().WithCause(err)
		}
		resetIn = l.window
	}

	return ratelimit.Decision{
		Allowed:    count <= l.max,
		Limit:      l.max,
		Remaining:  max(l.max-count, 0),
		RetryAfter: retryAfter(count, l.max, resetIn),
	}, nil
}

func retryAfter(count, limit int, resetIn time.Duration) time.Duration {
	if count <= limit {
		return 0
	}
	return resetIn
}
