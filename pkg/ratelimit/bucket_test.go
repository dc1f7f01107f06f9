package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/ratelimit"
)

func TestTokenBucketLimiterRefills(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := ratelimit.NewTokenBucketLimiterWithClock(60, 2, func() time.Time { return now })
	ctx := context.Background()

	for i, wantRemaining := range []int{1, 0} {
		d, err := l.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed || d.Remaining != wantRemaining || d.Limit != 2 {
			t.Fatalf("hit %d: %+v", i+1, d)
		}
	}

	d, _ := l.Allow(ctx, "10.0.0.1")
	if d.Allowed {
		t.Fatal("burst exhausted, third hit should be denied")
	}
	if d.RetryAfter != time.Second {
		t.Fatalf("RetryAfter = %v, want 1s", d.RetryAfter)
	}

	if d, _ := l.Allow(ctx, "10.0.0.2"); !d.Allowed {
		t.Fatal("other keys have their own bucket")
	}

	now = now.Add(time.Second)
	if d, _ := l.Allow(ctx, "10.0.0.1"); !d.Allowed {
		t.Fatal("one token should have refilled after a second")
	}
}

func TestTokenBucketLimiterSweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := ratelimit.NewTokenBucketLimiterWithClock(60, 2, func() time.Time { return now })

	_, _ = l.Allow(context.Background(), "a")
	_, _ = l.Allow(context.Background(), "b")

	now = now.Add(time.Second)
	l.Sweep()
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 before the buckets refill", l.Len())
	}

	now = now.Add(2 * time.Second)
	l.Sweep()
	if l.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after idle sweep", l.Len())
	}
}
