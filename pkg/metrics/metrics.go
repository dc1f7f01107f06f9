// Package metrics collects and exposes Prometheus metrics for the auth flows.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records authentication, rate limiting and identity provider
// metrics. It satisfies auth.Recorder; ObserveIdentity matches
// identity.Observer and RateLimitDenied ratelimit's denied hook.
type Collector struct {
	logins          *prometheus.CounterVec
	usersCreated    *prometheus.CounterVec
	rateLimitDenied *prometheus.CounterVec
	identityLatency *prometheus.HistogramVec
	identityErrors  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobgrid_auth_logins_total",
			Help: "Login attempts by method and result",
		}, []string{"method", "result"}),
		usersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobgrid_auth_users_created_total",
			Help: "Accounts created by method",
		}, []string{"method"}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobgrid_ratelimit_denied_total",
			Help: "Requests rejected by a rate limiter",
		}, []string{"limiter"}),
		identityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobgrid_identity_request_seconds",
			Help:    "Identity provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		identityErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobgrid_identity_request_errors_total",
			Help: "Failed identity provider calls",
		}, []string{"operation"}),
	}

	reg.MustRegister(
		c.logins,
		c.usersCreated,
		c.rateLimitDenied,
		c.identityLatency,
		c.identityErrors,
	)
	return c
}

func (c *Collector) LoginAttempt(method string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(method, result).Inc()
}

func (c *Collector) UserCreated(method string) {
	c.usersCreated.WithLabelValues(method).Inc()
}

func (c *Collector) RateLimitDenied(limiter string) {
	c.rateLimitDenied.WithLabelValues(limiter).Inc()
}

func (c *Collector) ObserveIdentity(operation string, elapsed time.Duration, err error) {
	c.identityLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
	if err != nil {
		c.identityErrors.WithLabelValues(operation).Inc()
	}
}

// RegisterRoutes mounts GET /metrics serving gatherer
func RegisterRoutes(router fiber.Router, gatherer prometheus.Gatherer) {
	router.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
