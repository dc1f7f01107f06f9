package auth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/iam/auth"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user/usersrv"
)

func TestPasswordlessRegistrationScenario(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, postJSON("/auth/magic-link/register", map[string]string{"email": "new@x.com"}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("magic-link/register status = %d (%v)", resp.StatusCode, body)
	}
	if got := env.provider.started(); len(got) != 1 || got[0] != "new@x.com" {
		t.Fatalf("passwordless starts = %v", got)
	}

	resp, body = env.do(t, postJSON("/auth/passwordless/verify", map[string]string{
		"email": "new@x.com",
		"code":  validOTP,
		"flow":  "register",
	}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d (%v)", resp.StatusCode, body)
	}
	if body["redirect"] != auth.RedirectAfterRegister {
		t.Fatalf("redirect = %v, want /create-company", body["redirect"])
	}
	if sessionCookie(resp) == nil {
		t.Fatal("no session cookie")
	}

	u, err := env.users.FindByExternalID(context.Background(), "email|new")
	if err != nil {
		t.Fatal(err)
	}
	if u.Type != user.AccountTypeRecruiter || u.Name != "new" || u.Email != "new@x.com" {
		t.Fatalf("user = %+v", u)
	}

	select {
	case sent := <-env.mailer.sent:
		if sent.Email != "new@x.com" || sent.Name != "new" || sent.NextURL != "/create-company" {
			t.Fatalf("welcome = %+v", sent)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("welcome email not sent")
	}
}

func TestPasswordlessVerifyLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.Reconcile(ctx, usersrv.EnsureUserInput{
		ExternalID: "email|new",
		Email:      "new@x.com",
		Name:       "Newton",
		Type:       user.AccountTypeSeeker,
	}); err != nil {
		t.Fatal(err)
	}

	resp, body := env.do(t, postJSON("/auth/passwordless/verify", map[string]string{"email": "new@x.com", "code": validOTP}))
	if resp.StatusCode != http.StatusOK || body["redirect"] != auth.RedirectAfterLogin {
		t.Fatalf("got %d %v", resp.StatusCode, body)
	}

	u, _ := env.users.FindByExternalID(ctx, "email|new")
	if u.Name != "Newton" || u.Type != user.AccountTypeSeeker {
		t.Fatalf("existing user changed: %+v", u)
	}
	select {
	case sent := <-env.mailer.sent:
		t.Fatalf("unexpected welcome email %+v", sent)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPasswordlessVerifyRejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing code", map[string]string{"email": "new@x.com"}, "Email and code are required"},
		{"missing email", map[string]string{"code": validOTP}, "Email and code are required"},
		{"wrong code", map[string]string{"email": "new@x.com", "code": "000000"}, "Invalid or expired code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, postJSON("/auth/passwordless/verify", tt.body))
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if body["error"] != tt.want {
				t.Fatalf("error = %v, want %q", body["error"], tt.want)
			}
			if sessionCookie(resp) != nil {
				t.Fatal("rejected verification set a cookie")
			}
		})
	}
	if env.users.Len() != 0 {
		t.Fatal("rejected verification created a user")
	}
}

func TestMagicLinkAccountChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.Reconcile(ctx, usersrv.EnsureUserInput{
		ExternalID: "email|known",
		Email:      "known@x.com",
		Type:       user.AccountTypeRecruiter,
	}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		path   string
		body   map[string]string
		status int
	}{
		{"register without email", "/auth/magic-link/register", map[string]string{}, http.StatusBadRequest},
		{"register existing email", "/auth/magic-link/register", map[string]string{"email": "KNOWN@x.com"}, http.StatusConflict},
		{"login without email", "/auth/magic-link/login", map[string]string{}, http.StatusBadRequest},
		{"login unknown email", "/auth/magic-link/login", map[string]string{"email": "ghost@x.com"}, http.StatusNotFound},
		{"login known email", "/auth/magic-link/login", map[string]string{"email": "known@x.com"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, postJSON(tt.path, tt.body))
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, tt.status, body)
			}
		})
	}
	if got := env.provider.started(); len(got) != 1 || got[0] != "known@x.com" {
		t.Fatalf("passwordless starts = %v", got)
	}
}

func TestMagicLinkIsRateLimited(t *testing.T) {
	env := newTestEnv(t)

	req := map[string]string{"email": "burst@x.com"}
	for i := 0; i < 2; i++ {
		if resp, body := env.do(t, postJSON("/auth/magic-link/register", req)); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d (%v)", i, resp.StatusCode, body)
		}
	}

	resp, body := env.do(t, postJSON("/auth/magic-link/register", req))
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	if body["error"] != "Too many requests. Please wait before retrying." {
		t.Fatalf("error = %v", body["error"])
	}
	if len(env.provider.started()) != 2 {
		t.Fatalf("provider called %d times", len(env.provider.started()))
	}
}
