package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/ratelimit"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := ratelimit.NewMemoryLimiterWithClock(5, 10*time.Minute, func() time.Time { return now })
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d, err := l.Allow(ctx, "1.2.3.4:a@x.com")
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed || d.Remaining != 5-i {
			t.Fatalf("hit %d: %+v", i, d)
		}
	}

	now = now.Add(4 * time.Minute)
	d, _ := l.Allow(ctx, "1.2.3.4:a@x.com")
	if d.Allowed {
		t.Fatal("sixth hit should be denied")
	}
	if d.RetryAfter != 6*time.Minute {
		t.Fatalf("RetryAfter = %v, want 6m", d.RetryAfter)
	}

	// other keys are independent
	if d, _ := l.Allow(ctx, "1.2.3.4:b@x.com"); !d.Allowed {
		t.Fatal("different key should be allowed")
	}

	now = now.Add(6 * time.Minute)
	if d, _ := l.Allow(ctx, "1.2.3.4:a@x.com"); !d.Allowed || d.Remaining != 4 {
		t.Fatalf("new window: %+v", d)
	}
}

func TestMemoryLimiterSweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := ratelimit.NewMemoryLimiterWithClock(1, time.Minute, func() time.Time { return now })

	_, _ = l.Allow(context.Background(), "a")
	_, _ = l.Allow(context.Background(), "b")
	if l.Len() != 2 {
		t.Fatalf("Len() = %d", l.Len())
	}

	now = now.Add(time.Minute)
	l.Sweep()
	if l.Len() != 0 {
		t.Fatalf("Len() after sweep = %d", l.Len())
	}
}

func TestMemoryLimiterStopIsIdempotent(t *testing.T) {
	l := ratelimit.NewMemoryLimiter(5, time.Minute)
	l.Stop()
	l.Stop()
}
