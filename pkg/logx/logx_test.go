package logx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Abraxas-365/jobgrid/pkg/logx"
)

type ctxKey struct{}

func TestJSONFormatterIncludesFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := logx.NewLogger(&logx.Config{
		Level:      logx.LevelDebug,
		Format:     logx.FormatJSON,
		TimeFormat: "unix",
		Output:     &buf,
	})

	logger.WithField("provider", "linkedin").WithError(errors.New("boom")).Error("exchange failed")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json line %q: %v", buf.String(), err)
	}
	if got["level"] != "ERROR" || got["message"] != "exchange failed" {
		t.Fatalf("unexpected entry: %v", got)
	}
	if got["provider"] != "linkedin" || got["error"] != "boom" {
		t.Fatalf("missing field or error: %v", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := logx.NewLogger(&logx.Config{Level: logx.LevelWarn, Format: logx.FormatConsole, Output: &buf})

	logger.WithField("k", "v").Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn, got %q", buf.String())
	}

	logger.WithField("k", "v").Warn("shown")
	if !strings.Contains(buf.String(), "shown") || !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestWithContextUsesRegisteredExtractors(t *testing.T) {
	logx.RegisterContextFields(func(ctx context.Context) logx.Fields {
		if v, ok := ctx.Value(ctxKey{}).(string); ok {
			return logx.Fields{"trace": v}
		}
		return nil
	})

	var buf bytes.Buffer
	logger := logx.NewLogger(&logx.Config{Level: logx.LevelInfo, Format: logx.FormatJSON, Output: &buf})
	prev := logx.GetDefaultLogger()
	logx.SetDefaultLogger(logger)
	defer logx.SetDefaultLogger(prev)

	ctx := context.WithValue(context.Background(), ctxKey{}, "abc")
	logx.WithContext(ctx).Info("hello")

	if !strings.Contains(buf.String(), `"trace":"abc"`) {
		t.Fatalf("expected trace field, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if logx.ParseLevel("warning") != logx.LevelWarn {
		t.Fatal("warning should parse to warn")
	}
	if logx.ParseLevel("nonsense") != logx.LevelInfo {
		t.Fatal("unknown levels default to info")
	}
}

func TestSensitiveFieldsAreRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := logx.NewLogger(&logx.Config{
		Level:      logx.LevelInfo,
		Format:     logx.FormatJSON,
		TimeFormat: "unix",
		Output:     &buf,
		RedactKeys: logx.DefaultRedactKeys,
	})

	details := map[string]any{"OTP": "123456", "email": "a@x.com"}
	logger.WithFields(logx.Fields{
		"password": "correct-horse",
		"details":  details,
		"provider": "linkedin",
	}).Info("login attempt")

	out := buf.String()
	for _, secret := range []string{"correct-horse", "123456"} {
		if strings.Contains(out, secret) {
			t.Fatalf("log line leaks %q: %s", secret, out)
		}
	}
	if !strings.Contains(out, "a@x.com") || !strings.Contains(out, "linkedin") {
		t.Fatalf("non-sensitive fields missing: %s", out)
	}
	if details["OTP"] != "123456" {
		t.Fatal("redaction must not modify the caller's map")
	}
}
