// Package ratelimit provides fixed-window request limiting for endpoints
// that trigger expensive side effects such as sending an OTP email.
package ratelimit

import (
	"context"
	"net/http"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("RATELIMIT")

var (
	CodeTooManyRequests = ErrRegistry.Register("TOO_MANY_REQUESTS", errx.TypeRateLimited, http.StatusTooManyRequests, "Too many requests. Please wait before retrying.")
	CodeBackend         = ErrRegistry.Register("BACKEND", errx.TypeExternal, http.StatusInternalServerError, "Rate limit backend unavailable")
)

func ErrTooManyRequests() *errx.Error { return ErrRegistry.New(CodeTooManyRequests) }
func ErrBackend() *errx.Error         { return ErrRegistry.New(CodeBackend) }

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts hits per key inside a window
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count, max int, resetIn time.Duration) Decision {
	d := Decision{Limit: max, Remaining: max - count}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if count > max {
		d.RetryAfter = resetIn
		return d
	}
	d.Allowed = true
	return d
}
