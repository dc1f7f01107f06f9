package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count   int
	expires time.Time
}

// MemoryLimiter keeps its counters in process memory. Counts are per
// process: behind several instances each one allows max per window. Use
// ratelimitredis when the limit must hold across instances.
type MemoryLimiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter starts a limiter and its janitor goroutine. Call Stop
// to release it.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	l := newMemoryLimiter(max, window, time.Now)
	go l.janitor(window)
	return l
}

// NewMemoryLimiterWithClock builds a limiter without a janitor; used by tests.
func NewMemoryLimiterWithClock(max int, window time.Duration, now func() time.Time) *MemoryLimiter {
	return newMemoryLimiter(max, window, now)
}

func newMemoryLimiter(max int, window time.Duration, now func() time.Time) *MemoryLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     now,
		stop:    make(chan struct{}),
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.expires) {
		b = &bucket{expires: now.Add(l.window)}
		l.buckets[key] = b
	}
	b.count++

	return decide(b.count, l.max, b.expires.Sub(now)), nil
}

// Len returns the number of live buckets
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Sweep drops expired buckets
func (l *MemoryLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, b := range l.buckets {
		if !now.Before(b.expires) {
			delete(l.buckets, k)
		}
	}
}

// Stop ends the janitor goroutine
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *MemoryLimiter) janitor(interval time.Duration) {
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
