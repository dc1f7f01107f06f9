package ratelimit

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/Abraxas-365/jobgrid/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// KeyFunc derives the limiter key for a request
type KeyFunc func(c *fiber.Ctx) string

type middlewareConfig struct {
	name     string
	onDenied func(limiter string)
}

type Option func(*middlewareConfig)

// WithName labels the limiter in logs and metrics
func WithName(name string) Option {
	return func(m *middlewareConfig) { m.name = name }
}

// WithDeniedHook is called for every rejected request
func WithDeniedHook(fn func(limiter string)) Option {
	return func(m *middlewareConfig) { m.onDenied = fn }
}

// Middleware rejects requests over the limit with 429 and Retry-After.
// Backend errors let the request through.
func Middleware(l Limiter, key KeyFunc, opts ...Option) fiber.Handler {
	cfg := middlewareConfig{name: "default", onDenied: func(string) {}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if key == nil {
		key = IPKey
	}

	return func(c *fiber.Ctx) error {
		k := key(c)
		d, err := l.Allow(c.UserContext(), k)
		if err != nil {
			logx.WithContext(c.UserContext()).
				WithError(err).
				WithField("limiter", cfg.name).
				Warn("rate limiter unavailable, allowing request")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			retry := int(math.Ceil(d.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			cfg.onDenied(cfg.name)
			logx.WithContext(c.UserContext()).WithFields(logx.Fields{
				"limiter": cfg.name,
				"key":     k,
			}).Warn("rate limit exceeded")
			return ErrTooManyRequests().WithDetail("retry_after", retry)
		}
		return c.Next()
	}
}

// ClientIP returns the first X-Forwarded-For hop, else the peer address
func ClientIP(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.IP()
}

// IPKey limits per client IP
func IPKey(c *fiber.Ctx) string {
	return ClientIP(c)
}

// IPAndEmailKey limits per client IP and the email in a JSON body, so one
// address cannot be flooded from a single client.
func IPAndEmailKey(c *fiber.Ctx) string {
	ip := ClientIP(c)

	var body struct {
		Email string `json:"email"`
	}
	if len(c.Body()) > 0 && json.Unmarshal(c.Body(), &body) == nil {
		if email := strings.ToLower(strings.TrimSpace(body.Email)); email != "" {
			return ip + ":" + email
		}
	}
	return ip
}
