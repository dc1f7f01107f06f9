package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyedBucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// TokenBucketLimiter gives each key a golang.org/x/time/rate bucket that
// refills at a steady rate, so short bursts pass but sustained traffic is
// smoothed. Buckets idle for longer than a full refill are swept.
type TokenBucketLimiter struct {
	every rate.Limit
	burst int
	idle  time.Duration

	mu      sync.Mutex
	buckets map[string]*keyedBucket
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewTokenBucketLimiter allows perMinute requests per minute per key with
// bursts up to burst. Call Stop to release the janitor.
func NewTokenBucketLimiter(perMinute, burst int) *TokenBucketLimiter {
	l := NewTokenBucketLimiterWithClock(perMinute, burst, time.Now)
	go l.janitor()
	return l
}

// NewTokenBucketLimiterWithClock builds a limiter without a janitor; used by tests.
func NewTokenBucketLimiterWithClock(perMinute, burst int, now func() time.Time) *TokenBucketLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	every := rate.Limit(float64(perMinute) / 60)
	return &TokenBucketLimiter{
		every:   every,
		burst:   burst,
		idle:    time.Duration(float64(burst)/float64(every)) * time.Second,
		buckets: make(map[string]*keyedBucket),
		now:     now,
		stop:    make(chan struct{}),
	}
}

func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &keyedBucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastAccess = now

	d := Decision{Limit: l.burst}
	if b.limiter.AllowN(now, 1) {
		d.Allowed = true
		d.Remaining = int(math.Floor(b.limiter.TokensAt(now)))
		return d, nil
	}

	missing := 1 - b.limiter.TokensAt(now)
	d.RetryAfter = time.Duration(missing / float64(l.every) * float64(time.Second))
	return d, nil
}

// Len returns the number of tracked keys
func (l *TokenBucketLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Sweep drops buckets that have been idle long enough to be full again
func (l *TokenBucketLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, b := range l.buckets {
		if now.Sub(b.lastAccess) >= l.idle {
			delete(l.buckets, k)
		}
	}
}

// Stop ends the janitor goroutine
func (l *TokenBucketLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *TokenBucketLimiter) janitor() {
	interval := l.idle
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stop:
			return
		}
	}
}
