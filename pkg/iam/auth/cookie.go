package auth

import (
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/iam/session"
	"github.com/gofiber/fiber/v2"
)

// cookieIssuer mints session tokens and writes them as cookies
type cookieIssuer struct {
	codec  *session.Codec
	secure bool
}

func (i cookieIssuer) issue(c *fiber.Ctx, idToken, accessToken string) error {
	token, err := i.codec.Sign(session.Claims{IDToken: idToken, AccessToken: accessToken})
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(i.codec.TTL().Seconds()),
		Expires:  time.Now().Add(i.codec.TTL()),
		HTTPOnly: true,
		Secure:   i.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func (i cookieIssuer) clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   i.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
