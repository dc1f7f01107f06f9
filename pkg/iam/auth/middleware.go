package auth

import (
	"github.com/Abraxas-365/jobgrid/pkg/iam/identity"
	"github.com/Abraxas-365/jobgrid/pkg/iam/session"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// SessionMiddleware guards routes with the session cookie
type SessionMiddleware struct {
	codec *session.Codec
}

func NewSessionMiddleware(codec *session.Codec) *SessionMiddleware {
	return &SessionMiddleware{codec: codec}
}

// Authenticate rejects requests without a valid session cookie and exposes
// the decoded identity through c.Locals and the user context.
func (m *SessionMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookieName)
		if token == "" {
			return ErrUnauthorized()
		}

		claims, err := m.codec.Verify(token)
		if err != nil {
			logx.WithContext(c.UserContext()).WithError(err).Debug("session rejected")
			return session.Opaque(err)
		}

		sess := &kernel.SessionIdentity{
			IDToken:     claims.IDToken,
			AccessToken: claims.AccessToken,
		}
		c.Locals(string(kernel.SessionContextKey), sess)
		c.SetUserContext(kernel.WithSession(c.UserContext(), sess))

		return c.Next()
	}
}

// GetSession returns the identity attached by Authenticate
func GetSession(c *fiber.Ctx) (*kernel.SessionIdentity, bool) {
	sess, ok := c.Locals(string(kernel.SessionContextKey)).(*kernel.SessionIdentity)
	return sess, ok && sess != nil
}

// ExternalID returns the identity provider subject of the session's id
// token. The token was signed into the cookie by us, so it is not
// re-verified against the provider.
func ExternalID(sess *kernel.SessionIdentity) (kernel.ExternalID, error) {
	if sess == nil || sess.IDToken == "" {
		return "", ErrUnauthorized()
	}
	claims, err := identity.DecodeClaims(sess.IDToken)
	if err != nil {
		return "", ErrUnauthorized().WithCause(err)
	}
	return kernel.ExternalID(claims.Subject), nil
}

// SessionExternalID is GetSession followed by ExternalID
func SessionExternalID(c *fiber.Ctx) (kernel.ExternalID, error) {
	sess, ok := GetSession(c)
	if !ok {
		return "", ErrUnauthorized()
	}
	return ExternalID(sess)
}
