package identity

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens are what the provider hands back after a successful grant
type Tokens struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// Claims is the subset of OIDC claims the service uses
type Claims struct {
	Subject    string `json:"sub"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Nickname   string `json:"nickname,omitempty"`
	Picture    string `json:"picture,omitempty"`
}

type idTokenClaims struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Nickname   string `json:"nickname"`
	Picture    string `json:"picture"`
	jwt.RegisteredClaims
}

// DecodeClaims reads the claims of an id token WITHOUT checking its
// signature. Only pass tokens received directly from the provider's token
// endpoint; never tokens supplied by a caller.
func DecodeClaims(idToken string) (Claims, error) {
	var c idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &c); err != nil {
		return Claims{}, ErrInvalidIDToken().WithCause(err)
	}
	if c.Subject == "" {
		return Claims{}, ErrInvalidIDToken().WithDetail("error", "missing sub claim")
	}
	return Claims{
		Subject:    c.Subject,
		Email:      c.Email,
		Name:       c.Name,
		GivenName:  c.GivenName,
		FamilyName: c.FamilyName,
		Nickname:   c.Nickname,
		Picture:    c.Picture,
	}, nil
}

// DisplayName picks the best human name available: name, then given and
// family name, then nickname, then the local part of the email.
func DisplayName(c Claims) string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	if full := strings.TrimSpace(strings.TrimSpace(c.GivenName) + " " + strings.TrimSpace(c.FamilyName)); full != "" {
		return full
	}
	if n := strings.TrimSpace(c.Nickname); n != "" {
		return n
	}
	return LocalPart(c.Email)
}

// LocalPart returns the part of an email before '@'
func LocalPart(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
