package auth

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/asyncx"
	"github.com/Abraxas-365/jobgrid/pkg/iam/identity"
	"github.com/Abraxas-365/jobgrid/pkg/iam/session"
	"github.com/Abraxas-365/jobgrid/pkg/iam/state"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
	"github.com/Abraxas-365/jobgrid/pkg/notifx"
	"github.com/gofiber/fiber/v2"
)

const welcomeEmailTimeout = 30 * time.Second

// Post-verification redirect hints
const (
	RedirectAfterRegister = "/create-company"
	RedirectAfterLogin    = "/"
)

// PasswordlessAuthHandlers serves the email one-time-code flow
type PasswordlessAuthHandlers struct {
	idp     IdentityProvider
	users   UserReconciler
	mailer  WelcomeMailer
	cookies cookieIssuer
	audit   AuditService
	metrics Recorder
	limiter fiber.Handler
}

// NewPasswordlessAuthHandlers wires the OTP flow. limiter guards the two
// routes that send codes; mailer may be nil to skip welcome emails.
func NewPasswordlessAuthHandlers(
	idp IdentityProvider,
	users UserReconciler,
	mailer WelcomeMailer,
	codec *session.Codec,
	audit AuditService,
	metrics Recorder,
	limiter fiber.Handler,
	secureCookies bool,
) *PasswordlessAuthHandlers {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &PasswordlessAuthHandlers{
		idp:     idp,
		users:   users,
		mailer:  mailer,
		cookies: cookieIssuer{codec: codec, secure: secureCookies},
		audit:   audit,
		metrics: metrics,
		limiter: limiter,
	}
}

func (h *PasswordlessAuthHandlers) RegisterRoutes(router fiber.Router) {
	g := router.Group("/auth")
	g.Post("/magic-link/register", h.limiter, h.StartRegistration)
	g.Post("/magic-link/login", h.limiter, h.StartLogin)
	g.Post("/passwordless/verify", h.Verify)
}

type magicLinkRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// StartRegistration sends a code to an email that has no local account yet.
func (h *PasswordlessAuthHandlers) StartRegistration(c *fiber.Ctx) error {
	var req magicLinkRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	email := user.NormalizeEmail(req.Email)
	if email == "" {
		return ErrMissingEmail()
	}

	ctx := c.UserContext()
	exists, err := h.users.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailExists()
	}

	if err := h.idp.StartPasswordless(ctx, email); err != nil {
		return err
	}
	h.audit.LogOTPRequested(ctx, email, string(state.FlowRegister), c.IP())

	return c.JSON(fiber.Map{"message": "Verification code sent"})
}

// StartLogin sends a code to an email that already has a local account.
func (h *PasswordlessAuthHandlers) StartLogin(c *fiber.Ctx) error {
	var req magicLinkRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	email := user.NormalizeEmail(req.Email)
	if email == "" {
		return ErrMissingEmail()
	}

	ctx := c.UserContext()
	exists, err := h.users.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if !exists {
		return ErrAccountNotFound()
	}

	if err := h.idp.StartPasswordless(ctx, email); err != nil {
		return err
	}
	h.audit.LogOTPRequested(ctx, email, string(state.FlowLogin), c.IP())

	return c.JSON(fiber.Map{"message": "Verification code sent"})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Flow  string `json:"flow"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// Verify exchanges the code for tokens, reconciles the user and sets the
// session cookie. New registrations get a welcome email in the background.
func (h *PasswordlessAuthHandlers) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	email := user.NormalizeEmail(req.Email)
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		return ErrMissingOTP()
	}

	ctx := c.UserContext()
	tokens, err := h.idp.ExchangeOTP(ctx, email, code)
	if err != nil {
		h.audit.LogOTPVerification(ctx, email, false, c.IP())
		h.metrics.LoginAttempt(MethodPasswordless, false)
		return err
	}
	h.audit.LogOTPVerification(ctx, email, true, c.IP())

	claims, err := identity.DecodeClaims(tokens.IDToken)
	if err != nil {
		h.metrics.LoginAttempt(MethodPasswordless, false)
		return err
	}

	register := state.Flow(req.Flow) == state.FlowRegister
	in := usersrv.EnsureUserInput{
		ExternalID: kernel.ExternalID(claims.Subject),
		Email:      firstNonEmpty(claims.Email, email),
		Name:       candidateName(req.Name, claims),
		Type:       user.ParseAccountType(req.Type, user.AccountTypeRecruiter),
		AvatarURL:  claims.Picture,
	}
	res := reconcileUser(ctx, h.users, h.audit, h.metrics, in, MethodPasswordless, c.IP())

	if err := h.cookies.issue(c, tokens.IDToken, tokens.AccessToken); err != nil {
		return err
	}
	h.metrics.LoginAttempt(MethodPasswordless, true)

	redirect := RedirectAfterLogin
	if register {
		redirect = RedirectAfterRegister
		if res.Created {
			h.sendWelcome(ctx, in, redirect)
		}
	}

	return c.JSON(fiber.Map{
		"message":  "Verification successful",
		"redirect": redirect,
	})
}

func (h *PasswordlessAuthHandlers) sendWelcome(ctx context.Context, in usersrv.EnsureUserInput, next string) {
	if h.mailer == nil {
		return
	}
	data := notifx.WelcomeData{
		Name:        firstNonEmpty(in.Name, user.EmailLocalPart(in.Email)),
		Email:       user.NormalizeEmail(in.Email),
		AccountType: string(in.Type),
		NextURL:     next,
	}
	logx.WithContext(ctx).WithField("email", data.Email).Debug("queueing welcome email")
	asyncx.Detach(ctx, welcomeEmailTimeout, "welcome-email", func(ctx context.Context) error {
		return h.mailer.SendWelcome(ctx, data)
	})
}

// candidateName is the explicit name if given, else the best claim. A
// provider "name" that is just the email is no name at all.
func candidateName(explicit string, claims identity.Claims) string {
	if n := strings.TrimSpace(explicit); n != "" {
		return n
	}
	n := identity.DisplayName(claims)
	if strings.EqualFold(n, claims.Email) {
		return ""
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
