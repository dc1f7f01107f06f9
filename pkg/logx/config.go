package logx

import (
	"io"
	"os"
	"strings"
	"time"
)

// Format represents the output format
type Format string

const (
	// FormatConsole outputs colored console logs (default)
	FormatConsole Format = "console"
	// FormatJSON outputs one JSON object per line
	FormatJSON Format = "json"
)

// Config holds the logger configuration
type Config struct {
	// Level is the minimum log level to output
	Level Level

	// Format is the output format
	Format Format

	// EnableColors enables colored output (console format only)
	EnableColors bool

	// EnableCaller adds file and line number to logs
	EnableCaller bool

	// TimeFormat is the time layout, or "unix"/"unixmilli"
	TimeFormat string

	// Output is where to write logs (defaults to os.Stdout)
	Output io.Writer

	// RedactKeys are field names (case-insensitive) whose values are
	// replaced before formatting, including inside map-valued fields.
	RedactKeys []string
}

// DefaultRedactKeys covers credentials that pass through the auth flows
var DefaultRedactKeys = []string{
	"password", "otp", "client_secret", "authorization", "cookie",
	"id_token", "access_token", "refresh_token", "session",
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:        LevelInfo,
		Format:       FormatConsole,
		EnableColors: true,
		TimeFormat:   time.RFC3339,
		Output:       os.Stdout,
		RedactKeys:   DefaultRedactKeys,
	}
}

// LoadFromEnv loads configuration from LOG_LEVEL, LOG_FORMAT, LOG_COLOR,
// LOG_CALLER and LOG_TIME_FORMAT.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = ParseLevel(level)
	}

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		config.Format = FormatJSON
	}

	if color := os.Getenv("LOG_COLOR"); color != "" {
		config.EnableColors = isTruthy(color)
	}

	if caller := os.Getenv("LOG_CALLER"); caller != "" {
		config.EnableCaller = isTruthy(caller)
	}

	switch tf := os.Getenv("LOG_TIME_FORMAT"); strings.ToUpper(tf) {
	case "":
	case "RFC3339NANO":
		config.TimeFormat = time.RFC3339Nano
	case "UNIX":
		config.TimeFormat = "unix"
	case "UNIXMILLI":
		config.TimeFormat = "unixmilli"
	default:
		config.TimeFormat = tf
	}

	return config
}

func isTruthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
