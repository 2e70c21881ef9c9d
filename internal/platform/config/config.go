package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	strutil "lokal/pkg/platform/strings"
)

// Server captures process-level configuration read from the environment.
type Server struct {
	Addr     string `env:"LOKAL_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOKAL_LOG_LEVEL" envDefault:"info"`

	// DatabaseURL selects Postgres-backed stores; empty keeps everything in memory.
	DatabaseURL string `env:"DATABASE_URL"`

	Redis RedisConfig `envPrefix:"REDIS_"`
	Auth  AuthConfig
	Kafka KafkaConfig `envPrefix:"KAFKA_"`
	Seed  SeedConfig  `envPrefix:"SEED_"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:8000"`
}

// RedisConfig drives the session and authorization-code stores. An empty URL
// keeps both in memory.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// AuthConfig holds token, code and cookie policy.
type AuthConfig struct {
	Issuer     string `env:"OIDC_ISSUER" envDefault:"http://localhost:8080"`
	Audience   string `env:"OIDC_AUDIENCE" envDefault:"lokal-api"`
	SigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`

	// Signature and expiry are always verified; issuer and audience are optional.
	ValidateIssuer   bool `env:"OIDC_VALIDATE_ISSUER" envDefault:"true"`
	ValidateAudience bool `env:"OIDC_VALIDATE_AUDIENCE" envDefault:"true"`

	AccessTokenTTL       time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	AuthorizationCodeTTL time.Duration `env:"AUTHORIZATION_CODE_TTL" envDefault:"5m"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	CleanupInterval      time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1m"`

	LoginURL       string `env:"LOGIN_URL" envDefault:"http://localhost:8000/login"`
	CookieName     string `env:"SESSION_COOKIE_NAME" envDefault:"lokal_session"`
	CookieSecure   bool   `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
	CookieSameSite string `env:"SESSION_COOKIE_SAMESITE" envDefault:"none"`
}

// KafkaConfig enables the audit publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string `env:"BROKERS" envSeparator:","`
	AuditTopic string   `env:"AUDIT_TOPIC" envDefault:"lokal.audit"`
}

// SeedConfig controls bootstrap data.
type SeedConfig struct {
	Enabled           bool     `env:"DATA" envDefault:"true"`
	ClientID          string   `env:"CLIENT_ID" envDefault:"ui-client"`
	ClientSecret      string   `env:"CLIENT_SECRET" envDefault:"secret-123"`
	ClientRedirectURI []string `env:"CLIENT_REDIRECT_URIS" envSeparator:"," envDefault:"http://localhost:8000/login/callback"`
	AdminEmail        string   `env:"ADMIN_EMAIL" envDefault:"admin@test.com"`
	AdminPassword     string   `env:"ADMIN_PASSWORD" envDefault:"Password123!"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.CORSOrigins = strutil.DedupeAndTrim(cfg.CORSOrigins)
	cfg.Kafka.Brokers = strutil.DedupeAndTrim(cfg.Kafka.Brokers)
	cfg.Seed.ClientRedirectURI = strutil.DedupeAndTrim(cfg.Seed.ClientRedirectURI)
	if _, err := cfg.Auth.SameSite(); err != nil {
		return Server{}, err
	}
	if cfg.Auth.CleanupInterval <= 0 {
		return Server{}, fmt.Errorf("CLEANUP_INTERVAL must be positive, got %s", cfg.Auth.CleanupInterval)
	}
	return cfg, nil
}

// SameSite parses the configured cookie SameSite policy.
func (a AuthConfig) SameSite() (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(a.CookieSameSite)) {
	case "none":
		return http.SameSiteNoneMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	default:
		return 0, fmt.Errorf("invalid SESSION_COOKIE_SAMESITE %q", a.CookieSameSite)
	}
}
