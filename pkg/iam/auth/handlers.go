package auth

import (
	"context"
	"net/url"
	"strings"

	"github.com/Abraxas-365/jobgrid/pkg/asyncx"
	"github.com/Abraxas-365/jobgrid/pkg/company"
	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"github.com/Abraxas-365/jobgrid/pkg/iam/identity"
	"github.com/Abraxas-365/jobgrid/pkg/iam/session"
	"github.com/Abraxas-365/jobgrid/pkg/iam/state"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// Config holds the HTTP-facing auth settings
type Config struct {
	// DefaultOrigin is the post-login target when the state has no usable host
	DefaultOrigin        string
	AllowedRedirectHosts []string

	// Connections maps the :provider path segment to a provider connection
	Connections map[string]string

	// CallbackURL, when set, is used instead of the request-derived one
	CallbackURL string
	Scope       string

	// Secure marks cookies Secure; false only for local development
	Secure bool
}

// AuthHandlers serves the password, social login, profile and logout routes
type AuthHandlers struct {
	idp       IdentityProvider
	users     UserReconciler
	companies CompanyLister
	states    *state.Manager
	cookies   cookieIssuer
	audit     AuditService
	metrics   Recorder
	cfg       Config
}

func NewAuthHandlers(
	idp IdentityProvider,
	users UserReconciler,
	companies CompanyLister,
	states *state.Manager,
	codec *session.Codec,
	audit AuditService,
	metrics Recorder,
	cfg Config,
) *AuthHandlers {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if cfg.DefaultOrigin == "" {
		cfg.DefaultOrigin = "/"
	}
	return &AuthHandlers{
		idp:       idp,
		users:     users,
		companies: companies,
		states:    states,
		cookies:   cookieIssuer{codec: codec, secure: cfg.Secure},
		audit:     audit,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// RegisterRoutes mounts /auth/login, /auth/register, /auth/user,
// /auth/logout and /auth/:provider/{login,callback}.
func (h *AuthHandlers) RegisterRoutes(router fiber.Router, sessions *SessionMiddleware) {
	g := router.Group("/auth")
	g.Post("/login", h.Login)
	g.Post("/register", h.Register)
	g.Get("/user", sessions.Authenticate(), h.CurrentUser)
	g.Get("/logout", h.Logout)
	g.Get("/:provider/login", h.ProviderLogin)
	g.Get("/:provider/callback", h.ProviderCallback)
}

// ============================================================================
// Password
// ============================================================================

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandlers) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	email := user.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return ErrMissingCredentials()
	}

	ctx := c.UserContext()
	tokens, err := h.idp.PasswordLogin(ctx, email, req.Password)
	if err != nil {
		h.audit.LogLoginAttempt(ctx, email, MethodPassword, false, c.IP(), c.Get(fiber.HeaderUserAgent))
		h.metrics.LoginAttempt(MethodPassword, false)
		return err
	}

	if err := h.cookies.issue(c, tokens.IDToken, tokens.AccessToken); err != nil {
		return err
	}
	h.audit.LogLoginAttempt(ctx, email, MethodPassword, true, c.IP(), c.Get(fiber.HeaderUserAgent))
	h.metrics.LoginAttempt(MethodPassword, true)

	return c.JSON(fiber.Map{"message": "Login successful"})
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// Register creates a database-connection account at the provider. The
// local user row is created on first login through reconciliation.
func (h *AuthHandlers) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	email := user.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" || strings.TrimSpace(req.GivenName) == "" || strings.TrimSpace(req.FamilyName) == "" {
		return ErrMissingRegistrationFields()
	}

	ctx := c.UserContext()
	exists, err := h.users.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailExists()
	}

	res, err := h.idp.Signup(ctx, identity.SignupInput{
		Email:      email,
		Password:   req.Password,
		GivenName:  strings.TrimSpace(req.GivenName),
		FamilyName: strings.TrimSpace(req.FamilyName),
		Picture:    req.Picture,
	})
	if err != nil {
		return err
	}
	h.metrics.UserCreated(MethodSignup)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful",
		"user":    res,
	})
}

// ============================================================================
// Social login
// ============================================================================

func (h *AuthHandlers) ProviderLogin(c *fiber.Ctx) error {
	provider := strings.ToLower(c.Params("provider"))
	connection, ok := h.cfg.Connections[provider]
	if !ok {
		return ErrUnknownProvider().WithDetail("provider", provider)
	}

	flow := state.Flow(c.Query("flow"))
	if !flow.Valid() {
		flow = state.FlowLogin
	}

	raw, payload, err := h.states.Issue(c.UserContext(), c.Get(fiber.HeaderReferer), flow)
	if err != nil {
		return err
	}

	logx.WithContext(c.UserContext()).WithFields(logx.Fields{
		"provider":    provider,
		"origin_host": payload.OriginHost,
		"flow":        payload.Flow,
	}).Debug("redirecting to identity provider")

	target := h.idp.AuthorizeURL(connection, h.callbackURL(c, provider), h.cfg.Scope, raw)
	return c.Redirect(target, fiber.StatusFound)
}

func (h *AuthHandlers) ProviderCallback(c *fiber.Ctx) error {
	provider := strings.ToLower(c.Params("provider"))
	if _, ok := h.cfg.Connections[provider]; !ok {
		return ErrUnknownProvider().WithDetail("provider", provider)
	}

	code, raw := c.Query("code"), c.Query("state")
	if code == "" || raw == "" {
		return ErrMissingCodeOrState()
	}

	ctx := c.UserContext()
	payload, err := h.states.Validate(ctx, raw)
	if err != nil {
		return err
	}

	tokens, err := h.idp.ExchangeCode(ctx, code, h.callbackURL(c, provider))
	if err != nil {
		h.metrics.LoginAttempt(provider, false)
		return err
	}

	claims, err := identity.DecodeClaims(tokens.IDToken)
	if err != nil {
		h.metrics.LoginAttempt(provider, false)
		return err
	}

	reconcileUser(ctx, h.users, h.audit, h.metrics, usersrv.EnsureUserInput{
		ExternalID: kernel.ExternalID(claims.Subject),
		Email:      claims.Email,
		Name:       identity.DisplayName(claims),
		Type:       user.AccountTypeSeeker,
		AvatarURL:  claims.Picture,
	}, provider, c.IP())

	if err := h.cookies.issue(c, tokens.IDToken, tokens.AccessToken); err != nil {
		return err
	}
	h.audit.LogLoginAttempt(ctx, claims.Subject, provider, true, c.IP(), c.Get(fiber.HeaderUserAgent))
	h.metrics.LoginAttempt(provider, true)

	return c.Redirect(state.RedirectTarget(payload, h.cfg.DefaultOrigin, h.cfg.AllowedRedirectHosts), fiber.StatusFound)
}

// reconcileUser never fails the sign-in: a user without a local row can
// still hold a session and is reconciled again on the next login.
func reconcileUser(ctx context.Context, users UserReconciler, audit AuditService, metrics Recorder, in usersrv.EnsureUserInput, method, ip string) usersrv.EnsureResult {
	res, err := users.Reconcile(ctx, in)
	if err != nil {
		logx.WithContext(ctx).WithError(err).WithFields(logx.Fields{
			"external_id": in.ExternalID,
			"method":      method,
		}).Error("user reconciliation failed, continuing with session")
		return usersrv.EnsureResult{}
	}
	switch {
	case res.Created:
		audit.LogAccountCreated(ctx, res.UserID, method, ip)
		metrics.UserCreated(method)
	case res.Updated:
		audit.LogProfileUpdated(ctx, res.UserID, method)
	}
	return res
}

// callbackURL derives the redirect URI from the proxy-forwarded host,
// falling back to the Host header.
func (h *AuthHandlers) callbackURL(c *fiber.Ctx, provider string) string {
	if h.cfg.CallbackURL != "" {
		return h.cfg.CallbackURL
	}
	host := firstValue(c.Get(fiber.HeaderXForwardedHost))
	if host == "" {
		host = c.Hostname()
	}
	scheme := firstValue(c.Get(fiber.HeaderXForwardedProto))
	if scheme == "" {
		scheme = "https"
		if !h.cfg.Secure {
			scheme = c.Protocol()
		}
	}
	u := url.URL{Scheme: scheme, Host: host, Path: "/auth/" + provider + "/callback"}
	return u.String()
}

func firstValue(header string) string {
	if i := strings.IndexByte(header, ','); i >= 0 {
		header = header[:i]
	}
	return strings.TrimSpace(header)
}

// ============================================================================
// Profile and logout
// ============================================================================

// CurrentUser returns the local user, their companies and the provider's
// view of the identity. The three lookups are independent and run
// concurrently; only a missing session is fatal.
func (h *AuthHandlers) CurrentUser(c *fiber.Ctx) error {
	sess, ok := GetSession(c)
	if !ok {
		return ErrUnauthorized()
	}
	claims, err := identity.DecodeClaims(sess.IDToken)
	if err != nil {
		return ErrUnauthorized().WithCause(err)
	}
	ext := kernel.ExternalID(claims.Subject)
	ctx := c.UserContext()

	userF := asyncx.Run(ctx, func(ctx context.Context) (*user.User, error) {
		return h.users.FindByExternalID(ctx, ext)
	})
	companiesF := asyncx.Run(ctx, func(ctx context.Context) ([]company.UserCompany, error) {
		return h.companies.ListByExternalID(ctx, ext)
	})
	infoF := asyncx.Run(ctx, func(ctx context.Context) (identity.Claims, error) {
		return h.idp.UserInfo(ctx, sess.AccessToken)
	})

	body := fiber.Map{"claims": claims, "user": nil, "companies": []company.UserCompany{}}

	if u, err := userF.Await(); err == nil {
		body["user"] = u
	} else if !errx.IsCode(err, user.CodeUserNotFound) {
		logx.WithContext(ctx).WithError(err).Warn("profile: user lookup failed")
	}
	if list, err := companiesF.Await(); err == nil {
		body["companies"] = list
	} else {
		logx.WithContext(ctx).WithError(err).Warn("profile: company lookup failed")
	}
	if info, err := infoF.Await(); err == nil {
		body["claims"] = mergeClaims(claims, info)
	} else {
		logx.WithContext(ctx).WithError(err).Debug("profile: userinfo unavailable, using id token claims")
	}

	return c.JSON(body)
}

// mergeClaims prefers fresh userinfo values over the id token's
func mergeClaims(base, fresh identity.Claims) identity.Claims {
	if fresh.Subject != "" && fresh.Subject != base.Subject {
		return base
	}
	pick := func(a, b string) string {
		if b != "" {
			return b
		}
		return a
	}
	base.Email = pick(base.Email, fresh.Email)
	base.Name = pick(base.Name, fresh.Name)
	base.GivenName = pick(base.GivenName, fresh.GivenName)
	base.FamilyName = pick(base.FamilyName, fresh.FamilyName)
	base.Nickname = pick(base.Nickname, fresh.Nickname)
	base.Picture = pick(base.Picture, fresh.Picture)
	return base
}

func (h *AuthHandlers) Logout(c *fiber.Ctx) error {
	h.cookies.clear(c)
	h.audit.LogLogout(c.UserContext(), c.IP())

	target := h.idp.LogoutURL(h.cfg.DefaultOrigin)
	if target == "" {
		target = h.cfg.DefaultOrigin
	}
	return c.Redirect(target, fiber.StatusFound)
}

// parseBody decodes a JSON body; an empty body leaves out untouched so the
// caller reports the missing fields instead of a parse error.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return ErrInvalidBody().WithCause(err)
	}
	return nil
}
