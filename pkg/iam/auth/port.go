package auth

import (
	"context"

	"github.com/Abraxas-365/jobgrid/pkg/company"
	"github.com/Abraxas-365/jobgrid/pkg/iam/identity"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/Abraxas-365/jobgrid/pkg/notifx"
)

// IdentityProvider is the identity provider surface the handlers drive
type IdentityProvider interface {
	AuthorizeURL(connection, redirectURI, scope, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (identity.Tokens, error)
	PasswordLogin(ctx context.Context, email, password string) (identity.Tokens, error)
	Signup(ctx context.Context, in identity.SignupInput) (identity.SignupResult, error)
	StartPasswordless(ctx context.Context, email string) error
	ExchangeOTP(ctx context.Context, email, code string) (identity.Tokens, error)
	UserInfo(ctx context.Context, accessToken string) (identity.Claims, error)
	LogoutURL(returnTo string) string
}

// UserReconciler keeps local users in step with verified identities
type UserReconciler interface {
	Reconcile(ctx context.Context, in usersrv.EnsureUserInput) (usersrv.EnsureResult, error)
	FindByExternalID(ctx context.Context, ext kernel.ExternalID) (*user.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// CompanyLister lists the companies a user belongs to
type CompanyLister interface {
	ListByExternalID(ctx context.Context, ext kernel.ExternalID) ([]company.UserCompany, error)
}

// WelcomeMailer sends the post-registration email
type WelcomeMailer interface {
	SendWelcome(ctx context.Context, data notifx.WelcomeData) error
}

// AuditService defines the contract for authentication audit logging
type AuditService interface {
	LogLoginAttempt(ctx context.Context, subject string, method string, success bool, ip string, userAgent string)
	LogLogout(ctx context.Context, ip string)
	LogOTPRequested(ctx context.Context, email string, flow string, ip string)
	LogOTPVerification(ctx context.Context, email string, success bool, ip string)
	LogAccountCreated(ctx context.Context, userID kernel.UserID, method string, ip string)
	LogProfileUpdated(ctx context.Context, userID kernel.UserID, method string)
}

// Recorder receives authentication outcomes for metrics
type Recorder interface {
	LoginAttempt(method string, success bool)
	UserCreated(method string)
}

type nopRecorder struct{}

func (nopRecorder) LoginAttempt(string, bool) {}
func (nopRecorder) UserCreated(string)        {}
