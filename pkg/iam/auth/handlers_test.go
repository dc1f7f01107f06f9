package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/iam/state"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

func TestCallbackRejectsMissingOrBadParameters(t *testing.T) {
	env := newTestEnv(t)

	wellFormed, err := state.Encode(state.Payload{OriginHost: "jobgrid.app", Nonce: "never-issued"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"no code", "", "Missing code or state"},
		{"code without state", "?code=" + validCode, "Missing code or state"},
		{"undecodable state", "?code=" + validCode + "&state=%25%25not-base64", "Invalid state parameter"},
		{"unknown nonce", "?code=" + validCode + "&state=" + url.QueryEscape(wellFormed), "Invalid or expired state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback"+tt.query, nil)
			resp, body := env.do(t, req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if body["error"] != tt.want {
				t.Fatalf("error = %v, want %q", body["error"], tt.want)
			}
		})
	}
	if env.users.Len() != 0 {
		t.Fatal("a rejected callback must not touch the user store")
	}
}

func TestUnknownProvider(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/myspace/login", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

// startLogin runs /auth/linkedin/login and returns the state the provider
// would echo back.
func startLogin(t *testing.T, env *testEnv, referer string) (string, *url.URL) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/login", nil)
	req.Header.Set("Referer", referer)
	resp, _ := env.do(t, req)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("login status = %d, want 302", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	return loc.Query().Get("state"), loc
}

func callback(t *testing.T, env *testEnv, code, rawState string) *http.Response {
	t.Helper()
	q := url.Values{"code": {code}, "state": {rawState}}
	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback?"+q.Encode(), nil))
	return resp
}

func TestProviderLoginRedirect(t *testing.T) {
	env := newTestEnv(t)

	raw, loc := startLogin(t, env, "https://app.jobgrid.app/jobs/42")
	if loc.Path != "/authorize" {
		t.Fatalf("path = %q", loc.Path)
	}
	q := loc.Query()
	if q.Get("connection") != "linkedin" || q.Get("client_id") != "client" || q.Get("response_type") != "code" {
		t.Fatalf("authorize query = %v", q)
	}
	if q.Get("redirect_uri") != "http://example.com/auth/linkedin/callback" {
		t.Fatalf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	p, err := state.Decode(raw)
	if err != nil {
		t.Fatalf("state does not decode: %v", err)
	}
	if p.OriginHost != "app.jobgrid.app" || p.Nonce == "" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestProviderLoginHonoursForwardedHost(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/linkedin/login?flow=register", nil)
	req.Header.Set("X-Forwarded-Host", "api.jobgrid.app, proxy.internal")
	req.Header.Set("X-Forwarded-Proto", "https")
	resp, _ := env.do(t, req)

	loc, _ := url.Parse(resp.Header.Get("Location"))
	if got := loc.Query().Get("redirect_uri"); got != "https://api.jobgrid.app/auth/linkedin/callback" {
		t.Fatalf("redirect_uri = %q", got)
	}
	p, err := state.Decode(loc.Query().Get("state"))
	if err != nil || p.Flow != state.FlowRegister {
		t.Fatalf("flow = %q, err %v", p.Flow, err)
	}
}

func TestLinkedInCallbackCreatesSeekerAndKeepsRealName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw, _ := startLogin(t, env, "https://app.jobgrid.app/")
	resp := callback(t, env, validCode, raw)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("callback status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != "https://app.jobgrid.app" {
		t.Fatalf("Location = %q", got)
	}
	cookie := sessionCookie(resp)
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly || cookie.Path != "/" || cookie.MaxAge != 7200 {
		t.Fatalf("session cookie = %+v", cookie)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("SameSite = %v", cookie.SameSite)
	}

	u, err := env.users.FindByExternalID(ctx, "linkedin|jane")
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "Jane Doe" || u.Type != user.AccountTypeSeeker {
		t.Fatalf("user = %+v", u)
	}

	env.provider.setCodeToken(idToken(t, jwt.MapClaims{"sub": "linkedin|jane", "email": "jane@x.com"}))
	raw, _ = startLogin(t, env, "https://app.jobgrid.app/")
	if resp := callback(t, env, validCode, raw); resp.StatusCode != http.StatusFound {
		t.Fatalf("second callback status = %d", resp.StatusCode)
	}

	u, _ = env.users.FindByExternalID(ctx, "linkedin|jane")
	if u.Name != "Jane Doe" {
		t.Fatalf("name = %q, want Jane Doe", u.Name)
	}
	if env.users.Len() != 1 {
		t.Fatalf("users = %d, want 1", env.users.Len())
	}
}

func TestCallbackStateIsSingleUse(t *testing.T) {
	env := newTestEnv(t)

	raw, _ := startLogin(t, env, "")
	if resp := callback(t, env, validCode, raw); resp.StatusCode != http.StatusFound {
		t.Fatalf("first callback status = %d", resp.StatusCode)
	} else if got := resp.Header.Get("Location"); got != "https://jobgrid.app" {
		t.Fatalf("no referer should land on the default origin, got %q", got)
	}
	if resp := callback(t, env, validCode, raw); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("replayed state status = %d, want 400", resp.StatusCode)
	}
}

func TestCallbackExchangeFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t)

	raw, _ := startLogin(t, env, "https://app.jobgrid.app/")
	q := url.Values{"code": {"stale"}, "state": {raw}}
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/linkedin/callback?"+q.Encode(), nil))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if body["error"] != "Authentication failed" {
		t.Fatalf("error = %v", body["error"])
	}
	if sessionCookie(resp) != nil {
		t.Fatal("failed exchange must not set a session")
	}
}

func TestPasswordLogin(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"missing password", map[string]string{"email": "jane@x.com"}, http.StatusBadRequest},
		{"wrong password", map[string]string{"email": "jane@x.com", "password": "nope"}, http.StatusUnauthorized},
		{"ok", map[string]string{"email": "Jane@X.com ", "password": "correct-horse"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, postJSON("/auth/login", tt.body))
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, tt.status, body)
			}
			hasCookie := sessionCookie(resp) != nil
			if hasCookie != (tt.status == http.StatusOK) {
				t.Fatalf("session cookie present = %v", hasCookie)
			}
			if tt.status == http.StatusOK && body["message"] != "Login successful" {
				t.Fatalf("message = %v", body["message"])
			}
		})
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, body := env.do(t, postJSON("/auth/register", map[string]string{"email": "a@x.com", "password": "pw"}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing names: status = %d", resp.StatusCode)
	}
	if body["error"] != "Email, password, given name, and family name are required" {
		t.Fatalf("error = %v", body["error"])
	}

	if _, err := env.service.Reconcile(ctx, usersrv.EnsureUserInput{
		ExternalID: kernel.ExternalID("auth0|taken"),
		Email:      "taken@x.com",
		Type:       user.AccountTypeRecruiter,
	}); err != nil {
		t.Fatal(err)
	}
	full := map[string]string{"email": "taken@x.com", "password": "pw", "given_name": "T", "family_name": "K"}
	if resp, _ := env.do(t, postJSON("/auth/register", full)); resp.StatusCode != http.StatusConflict {
		t.Fatalf("existing email: status = %d, want 409", resp.StatusCode)
	}

	full["email"] = "fresh@x.com"
	resp, body = env.do(t, postJSON("/auth/register", full))
	if resp.StatusCode != http.StatusCreated || body["message"] != "Registration successful" {
		t.Fatalf("got %d %v", resp.StatusCode, body)
	}
}

func TestCurrentUserProfile(t *testing.T) {
	env := newTestEnv(t)

	raw, _ := startLogin(t, env, "https://app.jobgrid.app/")
	cookie := sessionCookie(callback(t, env, validCode, raw))
	if cookie == nil {
		t.Fatal("no session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	resp, body := env.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d (%v)", resp.StatusCode, body)
	}

	u, ok := body["user"].(map[string]any)
	if !ok || u["name"] != "Jane Doe" || u["type"] != "seeker" {
		t.Fatalf("user = %v", body["user"])
	}
	if list, ok := body["companies"].([]any); !ok || len(list) != 0 {
		t.Fatalf("companies = %v", body["companies"])
	}
	claims, _ := body["claims"].(map[string]any)
	if claims["picture"] != "https://img.example.com/fresh.png" || claims["email"] != "jane@x.com" {
		t.Fatalf("claims = %v", claims)
	}
}

func TestCurrentUserRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/user", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	loc, _ := url.Parse(resp.Header.Get("Location"))
	if loc.Path != "/v2/logout" || loc.Query().Get("returnTo") != "https://jobgrid.app" {
		t.Fatalf("Location = %q", loc)
	}
	c := sessionCookie(resp)
	if c == nil || c.Value != "" || !c.Expires.Before(time.Now()) {
		t.Fatalf("cookie = %+v", c)
	}
}
