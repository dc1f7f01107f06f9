// Package session signs and verifies the session token stored in the
// session cookie. The token is an HS256 JWT carrying the identity
// provider's id and access tokens.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a session token and its cookie
const DefaultTTL = 2 * time.Hour

// Claims is the payload of a session token
type Claims struct {
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
}

type tokenClaims struct {
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with a fixed secret and ttl.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewCodec creates a codec. A zero ttl falls back to DefaultTTL.
func NewCodec(secret []byte, ttl time.Duration, issuer string) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if issuer == "" {
		issuer = "jobgrid"
	}
	return &Codec{
		secret: secret,
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// TTL returns the token lifetime
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Sign mints a token for claims valid for the codec's ttl.
func (c *Codec) Sign(claims Claims) (string, error) {
	now := c.now()

	tc := tokenClaims{
		IDToken:     claims.IDToken,
		AccessToken: claims.AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tc)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", ErrSignFailed().WithCause(err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry and returns the
// claims. Segments must be canonical base64url so no two encodings of the
// same signature both verify. Failures are ErrExpired or ErrInvalidSignature; anything that is
// not an expiry is treated as a bad signature.
func (c *Codec) Verify(token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired().WithCause(err)
		}
		return Claims{}, ErrInvalidSignature().WithCause(err)
	}

	tc, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidSignature().WithDetail("error", "invalid claims type")
	}

	return Claims{IDToken: tc.IDToken, AccessToken: tc.AccessToken}, nil
}
