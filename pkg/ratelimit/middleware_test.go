package ratelimit_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/errx/errxfiber"
	"github.com/Abraxas-365/jobgrid/pkg/ratelimit"
	"github.com/gofiber/fiber/v2"
)

func newApp(l ratelimit.Limiter, denied *int) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errxfiber.ErrorHandler})
	app.Post("/magic",
		ratelimit.Middleware(l, ratelimit.IPAndEmailKey,
			ratelimit.WithName("magic_link"),
			ratelimit.WithDeniedHook(func(string) { *denied++ }),
		),
		func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"message": "ok"}) },
	)
	return app
}

func post(t *testing.T, app *fiber.App, ip, body string) (int, string, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/magic", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, resp.Header.Get("Retry-After"), out
}

func TestMiddlewareDeniesOverLimit(t *testing.T) {
	l := ratelimit.NewMemoryLimiterWithClock(2, 10*time.Minute, time.Now)
	denied := 0
	app := newApp(l, &denied)

	for i := 0; i < 2; i++ {
		if status, _, _ := post(t, app, "1.1.1.1", `{"email":"A@x.com"}`); status != 200 {
			t.Fatalf("request %d status = %d", i, status)
		}
	}

	status, retry, body := post(t, app, "1.1.1.1", `{"email":"a@x.com"}`)
	if status != 429 {
		t.Fatalf("status = %d, want 429", status)
	}
	if retry == "" || retry == "0" {
		t.Fatalf("Retry-After = %q", retry)
	}
	if body["error"] != "Too many requests. Please wait before retrying." {
		t.Fatalf("body = %v", body)
	}
	if denied != 1 {
		t.Fatalf("denied hook called %d times", denied)
	}

	// same IP, different email has its own bucket
	if status, _, _ := post(t, app, "1.1.1.1", `{"email":"b@x.com"}`); status != 200 {
		t.Fatalf("other email status = %d", status)
	}
	// different IP, same email has its own bucket
	if status, _, _ := post(t, app, "2.2.2.2", `{"email":"a@x.com"}`); status != 200 {
		t.Fatalf("other ip status = %d", status)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis: connection refused")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	denied := 0
	app := newApp(brokenLimiter{}, &denied)

	if status, _, _ := post(t, app, "1.1.1.1", `{"email":"a@x.com"}`); status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
}
