package errxfiber_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/jobgrid/pkg/errx"
	"github.com/Abraxas-365/jobgrid/pkg/errx/errxfiber"
	"github.com/gofiber/fiber/v2"
)

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errxfiber.ErrorHandler})
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return errx.Conflict("Domain is already registered.").WithDetail("secret", "db row 42")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("pq: connection refused to 10.0.0.3")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad body")
	})

	tests := []struct {
		path   string
		status int
		msg    string
	}{
		{"/conflict", 409, "Domain is already registered."},
		{"/plain", 500, "Internal Server Error"},
		{"/fiber", 400, "bad body"},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
		if err != nil {
			t.Fatal(err)
		}
		raw, _ := io.ReadAll(resp.Body)
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("%s: body %q is not JSON", tt.path, raw)
		}
		if resp.StatusCode != tt.status || body["error"] != tt.msg {
			t.Fatalf("%s: got %d %v", tt.path, resp.StatusCode, body)
		}
		if _, leaked := body["details"]; leaked {
			t.Fatalf("%s: details leaked: %v", tt.path, body)
		}
	}
}
