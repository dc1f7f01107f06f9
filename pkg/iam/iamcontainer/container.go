package iamcontainer

import (
	"fmt"

	"github.com/Abraxas-365/jobgrid/pkg/config"
	"github.com/Abraxas-365/jobgrid/pkg/iam/auth"
	"github.com/Abraxas-365/jobgrid/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/jobgrid/pkg/iam/identity"
	"github.com/Abraxas-365/jobgrid/pkg/iam/session"
	"github.com/Abraxas-365/jobgrid/pkg/iam/state"
	"github.com/Abraxas-365/jobgrid/pkg/iam/state/stateinfra"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
	"github.com/Abraxas-365/jobgrid/pkg/metrics"
	"github.com/Abraxas-365/jobgrid/pkg/ratelimit"
	"github.com/Abraxas-365/jobgrid/pkg/ratelimit/ratelimitredis"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// ---------------------------------------------------------------------------

type Deps struct {
	Cfg   *config.Config
	Redis *redis.Client // nil unless REDIS_ENABLED

	// Users is chosen by the root container (postgres or memory)
	Users user.Repository

	// Companies and Mailer are cross-context dependencies injected as
	// interfaces so IAM knows nothing about their implementations.
	Companies auth.CompanyLister
	Mailer    auth.WelcomeMailer

	Metrics *metrics.Collector
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// ---------------------------------------------------------------------------

type Container struct {
	UserService    *usersrv.UserService
	IdentityClient *identity.Client
	SessionCodec   *session.Codec
	StateManager   *state.Manager

	// Auth handlers, mounted by RegisterRoutes
	AuthHandlers         *auth.AuthHandlers
	PasswordlessHandlers *auth.PasswordlessAuthHandlers

	// Middleware, shared with other modules to protect routes
	SessionMiddleware *auth.SessionMiddleware

	magicLinkLimiter ratelimit.Limiter
}

// New constructs the IAM dependency graph.
// Order matters: keys → infra → services → handlers → middleware.
func New(deps Deps) (*Container, error) {
	logx.Info("🔧 Initializing IAM container...")

	cfg := deps.Cfg
	c := &Container{}

	// ── Keys ─────────────────────────────────────────────────────────────

	sessionKey, err := cfg.Auth.DeriveKey("session")
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	c.SessionCodec = session.NewCodec(sessionKey, cfg.Auth.SessionTTL, cfg.Auth.Issuer)

	// ── Infrastructure services ──────────────────────────────────────────

	var nonces state.NonceStore
	if cfg.Auth.StateStore == "redis" {
		nonces = stateinfra.NewRedisStore(deps.Redis)
		logx.Info("  ✅ Using Redis nonce store for OAuth state")
	} else {
		nonces = state.NewMemoryStore()
		logx.Warn("  ⚠️  Using in-memory nonce store (single instance only)")
	}
	c.StateManager = state.NewManager(nonces, state.Binding(cfg.Auth.StateBinding), cfg.Auth.StateTTL)

	if cfg.RateLimit.Backend == "redis" {
		c.magicLinkLimiter = ratelimitredis.NewLimiter(deps.Redis, "magic_link", cfg.RateLimit.MagicLinkMax, cfg.RateLimit.MagicLinkWindow)
		logx.Info("  ✅ Using Redis rate limiter for magic links")
	} else {
		c.magicLinkLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.MagicLinkMax, cfg.RateLimit.MagicLinkWindow)
		logx.Warn("  ⚠️  Using in-memory rate limiter (per process)")
	}

	identityOpts := []identity.Option{}
	var recorder auth.Recorder
	limiterOpts := []ratelimit.Option{ratelimit.WithName("magic_link")}
	if deps.Metrics != nil {
		identityOpts = append(identityOpts, identity.WithObserver(deps.Metrics.ObserveIdentity))
		limiterOpts = append(limiterOpts, ratelimit.WithDeniedHook(deps.Metrics.RateLimitDenied))
		recorder = deps.Metrics
	}

	baseURL := ""
	if cfg.Identity.Domain != "" {
		baseURL = cfg.Identity.BaseURL()
	} else {
		logx.Warn("  ⚠️  AUTH0_DOMAIN not set, identity provider calls will fail")
	}
	c.IdentityClient = identity.NewClient(identity.Config{
		BaseURL:      baseURL,
		ClientID:     cfg.Identity.ClientID,
		ClientSecret: cfg.Identity.ClientSecret,
		Audience:     cfg.Identity.Audience,
		Scope:        cfg.Identity.Scope,
		DBConnection: cfg.Identity.DBConnection,
		Timeout:      cfg.Identity.HTTPTimeout,
	}, identityOpts...)

	auditService := authinfra.NewLogxAuditService()

	// ── Domain services ──────────────────────────────────────────────────

	c.UserService = usersrv.NewUserService(deps.Users)

	// ── Auth handlers ────────────────────────────────────────────────────

	secure := !cfg.Auth.Local()

	c.AuthHandlers = auth.NewAuthHandlers(
		c.IdentityClient,
		c.UserService,
		deps.Companies,
		c.StateManager,
		c.SessionCodec,
		auditService,
		recorder,
		auth.Config{
			DefaultOrigin:        cfg.Auth.DefaultOrigin,
			AllowedRedirectHosts: cfg.Auth.AllowedRedirectHosts,
			Connections:          cfg.Identity.Connections,
			CallbackURL:          cfg.Identity.CallbackURL,
			Scope:                cfg.Identity.Scope,
			Secure:               secure,
		},
	)

	c.PasswordlessHandlers = auth.NewPasswordlessAuthHandlers(
		c.IdentityClient,
		c.UserService,
		deps.Mailer,
		c.SessionCodec,
		auditService,
		recorder,
		ratelimit.Middleware(c.magicLinkLimiter, ratelimit.IPAndEmailKey, limiterOpts...),
		secure,
	)

	// ── Middleware ────────────────────────────────────────────────────────

	c.SessionMiddleware = auth.NewSessionMiddleware(c.SessionCodec)

	logx.Infof("✅ IAM container initialized (providers: %d, state binding: %s)",
		len(cfg.Identity.Connections), cfg.Auth.StateBinding)
	return c, nil
}

// RegisterRoutes mounts every /auth route
func (c *Container) RegisterRoutes(router fiber.Router) {
	c.AuthHandlers.RegisterRoutes(router, c.SessionMiddleware)
	c.PasswordlessHandlers.RegisterRoutes(router)
}

// Close stops background work owned by the module.
func (c *Container) Close() {
	if s, ok := c.magicLinkLimiter.(interface{ Stop() }); ok {
		s.Stop()
	}
}
