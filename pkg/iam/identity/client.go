// Package identity talks to the Auth0-compatible identity provider:
// authorize URLs, code, password and OTP grants, passwordless start,
// signup, userinfo and logout.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"golang.org/x/oauth2"
)

const otpGrantType = "http://auth0.com/oauth/grant-type/passwordless/otp"

// maxErrorBody caps how much of a provider error body is kept for logs
const maxErrorBody = 4 << 10

// Config holds the provider tenant settings
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Audience     string
	Scope        string
	DBConnection string
	Timeout      time.Duration
}

// Observer receives the latency of every provider round trip
type Observer func(operation string, elapsed time.Duration, err error)

// Client performs single-attempt calls against the provider. Nothing is
// retried; the user retries by restarting the flow.
type Client struct {
	cfg     Config
	oauth   oauth2.Config
	http    *http.Client
	observe Observer
}

type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every call
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observe = o }
}

func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Scope == "" {
		cfg.Scope = "openid profile email"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Client{
		cfg: cfg,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.BaseURL + "/authorize",
				TokenURL:  cfg.BaseURL + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: strings.Fields(cfg.Scope),
		},
		http:    &http.Client{Timeout: cfg.Timeout},
		observe: func(string, time.Duration, error) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthorizeURL builds the provider redirect for a social connection. No I/O.
func (c *Client) AuthorizeURL(connection, redirectURI, scope, state string) string {
	conf := c.oauth
	conf.RedirectURL = redirectURI
	if scope != "" {
		conf.Scopes = strings.Fields(scope)
	}

	params := []oauth2.AuthCodeOption{}
	if connection != "" {
		params = append(params, oauth2.SetAuthURLParam("connection", connection))
	}
	if c.cfg.Audience != "" {
		params = append(params, oauth2.SetAuthURLParam("audience", c.cfg.Audience))
	}
	return conf.AuthCodeURL(state, params...)
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (Tokens, error) {
	conf := c.oauth
	conf.RedirectURL = redirectURI

	start := time.Now()
	tok, err := conf.Exchange(c.oauthContext(ctx), code)
	c.observe("exchange_code", time.Since(start), err)
	if err != nil {
		return Tokens{}, withProviderBody(ErrTokenExchange(), err)
	}
	return tokensFrom(tok)
}

// PasswordLogin runs the resource owner password grant against the
// tenant's default database connection.
func (c *Client) PasswordLogin(ctx context.Context, email, password string) (Tokens, error) {
	start := time.Now()
	tok, err := c.oauth.PasswordCredentialsToken(c.oauthContext(ctx), email, password)
	c.observe("password_login", time.Since(start), err)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
			return Tokens{}, withProviderBody(ErrInvalidCredentials(), err)
		}
		return Tokens{}, withProviderBody(ErrTokenExchange(), err)
	}
	return tokensFrom(tok)
}

// StartPasswordless asks the provider to email a one-time code.
func (c *Client) StartPasswordless(ctx context.Context, email string) error {
	body := map[string]string{
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"connection":    "email",
		"email":         email,
		"send":          "code",
	}

	start := time.Now()
	_, status, respBody, err := c.postJSON(ctx, "/passwordless/start", body)
	c.observe("passwordless_start", time.Since(start), err)
	if err != nil {
		return ErrPasswordless().WithCause(err)
	}
	if status >= 300 {
		return ErrPasswordless().WithDetail("status", status).WithDetail("provider_body", respBody)
	}
	return nil
}

// ExchangeOTP trades an emailed one-time code for tokens.
func (c *Client) ExchangeOTP(ctx context.Context, email, code string) (Tokens, error) {
	form := url.Values{
		"grant_type":    {otpGrantType},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"username":      {email},
		"otp":           {code},
		"realm":         {"email"},
		"scope":         {c.cfg.Scope},
	}
	if c.cfg.Audience != "" {
		form.Set("audience", c.cfg.Audience)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return Tokens{}, ErrTokenExchange().WithCause(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	raw, status, err := c.do(req)
	c.observe("exchange_otp", time.Since(start), err)
	if err != nil {
		return Tokens{}, ErrTokenExchange().WithCause(err)
	}
	if status >= 500 {
		return Tokens{}, ErrTokenExchange().WithDetail("status", status).WithDetail("provider_body", truncate(raw))
	}
	if status >= 300 {
		return Tokens{}, ErrInvalidOTP().WithDetail("status", status).WithDetail("provider_body", truncate(raw))
	}

	var tokens Tokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return Tokens{}, ErrTokenExchange().WithCause(err)
	}
	if tokens.IDToken == "" || tokens.AccessToken == "" {
		return Tokens{}, ErrTokenExchange().WithDetail("error", "provider response missing tokens")
	}
	return tokens, nil
}

// SignupInput is a database-connection registration
type SignupInput struct {
	Email      string
	Password   string
	GivenName  string
	FamilyName string
	Picture    string
}

// SignupResult identifies the provider-side account
type SignupResult struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

// Signup creates a password account in the database connection.
func (c *Client) Signup(ctx context.Context, in SignupInput) (SignupResult, error) {
	body := map[string]string{
		"client_id":   c.cfg.ClientID,
		"connection":  c.cfg.DBConnection,
		"email":       in.Email,
		"password":    in.Password,
		"given_name":  in.GivenName,
		"family_name": in.FamilyName,
		"name":        strings.TrimSpace(in.GivenName + " " + in.FamilyName),
	}
	if in.Picture != "" {
		body["picture"] = in.Picture
	}

	start := time.Now()
	raw, status, respBody, err := c.postJSON(ctx, "/dbconnections/signup", body)
	c.observe("signup", time.Since(start), err)
	if err != nil {
		return SignupResult{}, ErrTokenExchange().WithCause(err)
	}
	if status >= 300 {
		return SignupResult{}, ErrSignup().WithDetail("status", status).WithDetail("provider_body", respBody)
	}

	var res SignupResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return SignupResult{}, ErrSignup().WithCause(err)
	}
	return res, nil
}

// UserInfo loads the current profile for an access token.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (Claims, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/userinfo", nil)
	if err != nil {
		return Claims{}, ErrUserInfo().WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	raw, status, err := c.do(req)
	c.observe("userinfo", time.Since(start), err)
	if err != nil {
		return Claims{}, ErrUserInfo().WithCause(err)
	}
	if status >= 300 {
		return Claims{}, ErrUserInfo().WithDetail("status", status).WithDetail("provider_body", truncate(raw))
	}

	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return Claims{}, ErrUserInfo().WithCause(err)
	}
	return claims, nil
}

// LogoutURL returns the provider logout endpoint that sends the browser
// back to returnTo, or "" when no client is configured.
func (c *Client) LogoutURL(returnTo string) string {
	if c.cfg.ClientID == "" {
		return ""
	}
	q := url.Values{"client_id": {c.cfg.ClientID}}
	if returnTo != "" {
		q.Set("returnTo", returnTo)
	}
	return c.cfg.BaseURL + "/v2/logout?" + q.Encode()
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func (c *Client) postJSON(ctx context.Context, path string, body any) ([]byte, int, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, status, err := c.do(req)
	if err != nil {
		return nil, 0, "", err
	}
	return raw, status, truncate(raw), nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func tokensFrom(tok *oauth2.Token) (Tokens, error) {
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" || tok.AccessToken == "" {
		return Tokens{}, ErrTokenExchange().WithDetail("error", "provider response missing tokens")
	}
	t := Tokens{
		IDToken:      idToken,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		t.ExpiresIn = int(time.Until(tok.Expiry).Seconds())
	}
	return t, nil
}

func withProviderBody(e *errx.Error, err error) *errx.Error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		e = e.WithDetail("provider_body", truncate(re.Body))
		if re.Response != nil {
			e = e.WithDetail("status", re.Response.StatusCode)
		}
	}
	return e.WithCause(err)
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody])
	}
	return string(b)
}
