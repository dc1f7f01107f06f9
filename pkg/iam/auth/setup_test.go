package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/company/companyinfra"
	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"github.com/Abraxas-365/jobgrid/pkg/errx/errxfiber"
	"github.com/Abraxas-365/jobgrid/pkg/iam/auth"
	"github.com/Abraxas-365/jobgrid/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/jobgrid/pkg/iam/identity"
	"github.com/Abraxas-365/jobgrid/pkg/iam/session"
	"github.com/Abraxas-365/jobgrid/pkg/iam/state"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/jobgrid/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/Abraxas-365/jobgrid/pkg/notifx"
	"github.com/Abraxas-365/jobgrid/pkg/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

const (
	validCode = "good-code"
	validOTP  = "123456"
)

func idToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("provider-key"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// fakeProvider answers the identity provider endpoints the handlers use
type fakeProvider struct {
	mu           sync.Mutex
	codeIDToken  string
	otpIDToken   string
	passwordless []string
}

func (p *fakeProvider) setCodeToken(tok string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codeIDToken = tok
}

func (p *fakeProvider) started() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.passwordless...)
}

func (p *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		p.mu.Lock()
		tok := ""
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") == validCode {
				tok = p.codeIDToken
			}
		case "password":
			if r.PostForm.Get("password") == "correct-horse" {
				tok = p.codeIDToken
			}
		case "http://auth0.com/oauth/grant-type/passwordless/otp":
			if r.PostForm.Get("otp") == validOTP {
				tok = p.otpIDToken
			}
		}
		p.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if tok == "" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"provider says no"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "provider-access",
			"id_token":     tok,
			"token_type":   "Bearer",
			"expires_in":   86400,
		})
	})
	mux.HandleFunc("/passwordless/start", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.mu.Lock()
		p.passwordless = append(p.passwordless, body["email"])
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"email":"` + body["email"] + `"}`))
	})
	mux.HandleFunc("/dbconnections/signup", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_id":"db-1","email":"` + body["email"] + `"}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"linkedin|jane","picture":"https://img.example.com/fresh.png"}`))
	})
	return mux
}

type recordingMailer struct {
	sent chan notifx.WelcomeData
}

func (m *recordingMailer) SendWelcome(_ context.Context, data notifx.WelcomeData) error {
	m.sent <- data
	return nil
}

type testEnv struct {
	app       *fiber.App
	provider  *fakeProvider
	users     *userinfra.MemoryUserRepository
	service   *usersrv.UserService
	companies *companyinfra.MemoryCompanyRepository
	codec     *session.Codec
	sessions  *auth.SessionMiddleware
	mailer    *recordingMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	provider := &fakeProvider{
		codeIDToken: idToken(t, jwt.MapClaims{"sub": "linkedin|jane", "email": "jane@x.com", "name": "Jane Doe"}),
		otpIDToken:  idToken(t, jwt.MapClaims{"sub": "email|new", "email": "new@x.com", "name": "new@x.com", "nickname": "new"}),
	}
	srv := httptest.NewServer(provider.handler())
	t.Cleanup(srv.Close)

	idp := identity.NewClient(identity.Config{BaseURL: srv.URL, ClientID: "client", ClientSecret: "secret"})

	users := userinfra.NewMemoryUserRepository()
	service := usersrv.NewUserService(users)
	companies := companyinfra.NewMemoryCompanyRepository(func(ctx context.Context, ext kernel.ExternalID) (kernel.UserID, error) {
		u, err := users.FindByExternalID(ctx, ext)
		if errx.IsCode(err, user.CodeUserNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return u.ID, nil
	})

	codec := session.NewCodec(testSecret, session.DefaultTTL, "jobgrid")
	states := state.NewManager(state.NewMemoryStore(), state.BindingStore, time.Minute)
	audit := authinfra.NewLogxAuditService()

	limiter := ratelimit.NewMemoryLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)

	mailer := &recordingMailer{sent: make(chan notifx.WelcomeData, 4)}

	app := fiber.New(fiber.Config{ErrorHandler: errxfiber.ErrorHandler})
	sessions := auth.NewSessionMiddleware(codec)

	auth.NewAuthHandlers(idp, service, companies, states, codec, audit, nil, auth.Config{
		DefaultOrigin: "https://jobgrid.app",
		Connections:   map[string]string{"linkedin": "linkedin"},
	}).RegisterRoutes(app, sessions)

	auth.NewPasswordlessAuthHandlers(idp, service, mailer, codec, audit, nil,
		ratelimit.Middleware(limiter, ratelimit.IPAndEmailKey, ratelimit.WithName("magic_link")),
		false,
	).RegisterRoutes(app)

	return &testEnv{
		app:       app,
		provider:  provider,
		users:     users,
		service:   service,
		companies: companies,
		codec:     codec,
		sessions:  sessions,
		mailer:    mailer,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	body := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp, body
}

func postJSON(path string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func (e *testEnv) signedCookie(t *testing.T, idTok string) *http.Cookie {
	t.Helper()
	tok, err := e.codec.Sign(session.Claims{IDToken: idTok, AccessToken: "provider-access"})
	if err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: tok}
}
