// Package config loads process configuration from the environment.
package config

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/hkdf"
)

// Config is the root configuration, one section per concern.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Identity  IdentityConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Notifx    NotifxConfig
}

type ServerConfig struct {
	Port        string `env:"PORT" envDefault:"8080"`
	AppVersion  string `env:"APP_VERSION" envDefault:"1.0.0"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
	BodyLimitMB int    `env:"BODY_LIMIT_MB" envDefault:"10"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
}

type DatabaseConfig struct {
	// Mode is "postgres" or "memory" (development only)
	Mode            string        `env:"STORE_MODE" envDefault:"postgres"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"jobgrid"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// DSN returns a lib/pq keyword connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL returns the postgres:// form used by the migrator
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Address returns host:port
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type AuthConfig struct {
	CookieSecret string        `env:"COOKIE_SECRET"`
	Production   bool          `env:"PRODUCTION" envDefault:"false"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	Issuer       string        `env:"SESSION_ISSUER" envDefault:"jobgrid"`

	// DefaultOrigin is where users land when the state carries no usable host
	DefaultOrigin string `env:"CLIENT_STATIC_URL" envDefault:"/"`

	// AllowedRedirectHosts restricts post-login redirects; empty allows any
	// well-formed host.
	AllowedRedirectHosts []string `env:"ALLOWED_REDIRECT_HOSTS" envSeparator:","`

	// StateBinding is "store" (nonce must have been issued by us) or "none"
	// (self-describing state, decode only).
	StateBinding string        `env:"STATE_BINDING" envDefault:"store"`
	StateStore   string        `env:"STATE_STORE" envDefault:"memory"`
	StateTTL     time.Duration `env:"STATE_TTL" envDefault:"10m"`
}

// Local reports whether cookies may be issued without Secure
func (a AuthConfig) Local() bool {
	return !a.Production
}

type IdentityConfig struct {
	Domain       string        `env:"AUTH0_DOMAIN"`
	ClientID     string        `env:"AUTH0_CLIENT_ID"`
	ClientSecret string        `env:"AUTH0_CLIENT_SECRET"`
	Audience     string        `env:"AUTH0_AUDIENCE"`
	Scope        string        `env:"AUTH0_SCOPE" envDefault:"openid profile email"`
	DBConnection string        `env:"AUTH0_DB_CONNECTION" envDefault:"Username-Password-Authentication"`
	HTTPTimeout  time.Duration `env:"AUTH0_HTTP_TIMEOUT" envDefault:"15s"`

	// Connections maps a public provider name to a provider connection,
	// e.g. "linkedin:linkedin,google:google-oauth2".
	Connections map[string]string `env:"AUTH0_CONNECTIONS" envDefault:"linkedin:linkedin"`

	// CallbackURL overrides the redirect URI computed from the request host
	CallbackURL string `env:"LINKEDIN_REDIRECT_URI"`
}

// BaseURL returns https://<domain>, accepting a domain given with a scheme
func (i IdentityConfig) BaseURL() string {
	d := strings.TrimSuffix(i.Domain, "/")
	if strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://") {
		return d
	}
	return "https://" + d
}

type RateLimitConfig struct {
	// Backend is "memory" (per process) or "redis" (shared)
	Backend         string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	MagicLinkMax    int           `env:"MAGIC_LINK_RATE_MAX" envDefault:"5"`
	MagicLinkWindow time.Duration `env:"MAGIC_LINK_RATE_WINDOW" envDefault:"10m"`

	// Uploads use a per-IP token bucket in process memory
	UploadPerMinute int `env:"UPLOAD_RATE_PER_MINUTE" envDefault:"30"`
	UploadBurst     int `env:"UPLOAD_RATE_BURST" envDefault:"10"`
}

type StorageConfig struct {
	// Mode is "local" or "s3"
	Mode          string `env:"STORAGE_MODE" envDefault:"local"`
	UploadDir     string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	PublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"http://localhost:8080/files"`
	AWSRegion     string `env:"AWS_REGION" envDefault:"us-east-1"`
	CompanyBucket string `env:"COMPANY_ASSETS_BUCKET" envDefault:"company_assets"`
}

// NotifxConfig configures the notification system.
type NotifxConfig struct {
	Provider    string `env:"NOTIFX_PROVIDER" envDefault:"console"`
	FromAddress string `env:"NOTIFX_FROM_ADDRESS" envDefault:"noreply@jobgrid.app"`
	FromName    string `env:"NOTIFX_FROM_NAME" envDefault:"JobGrid"`
	AWSRegion   string `env:"NOTIFX_AWS_REGION" envDefault:"us-east-1"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot run safely.
func (c *Config) Validate() error {
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	switch c.Auth.StateBinding {
	case "store", "none":
	default:
		return fmt.Errorf("STATE_BINDING must be 'store' or 'none', got %q", c.Auth.StateBinding)
	}
	if c.Auth.StateStore == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("STATE_STORE=redis requires REDIS_ENABLED=true")
	}
	if c.RateLimit.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("RATE_LIMIT_BACKEND=redis requires REDIS_ENABLED=true")
	}
	if c.Auth.Production {
		if len(c.Auth.CookieSecret) < 32 {
			return fmt.Errorf("COOKIE_SECRET must be at least 32 bytes in production")
		}
		if c.Identity.Domain == "" || c.Identity.ClientID == "" {
			return fmt.Errorf("AUTH0_DOMAIN and AUTH0_CLIENT_ID are required in production")
		}
	} else if c.Auth.CookieSecret == "" {
		c.Auth.CookieSecret = "local-development-cookie-secret-change-me"
	}
	return nil
}

// DeriveKey expands the cookie secret into a 32-byte key bound to purpose.
// Session tokens are signed with the "session" key, never the raw secret.
func (a AuthConfig) DeriveKey(purpose string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(a.CookieSecret), nil, []byte("jobgrid/"+purpose))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}
