// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sundayezeilo/shortlinks/internal/httpx"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	App           AppConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
	Shortener     ShortenerConfig
	Redis         RedisConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" required:"true"`
	Host            string        `envconfig:"SERVER_HOST" required:"true"`
	BaseURL         string        `envconfig:"SERVER_BASE_URL" required:"true"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"SERVER_CORS_ORIGINS"`      // empty allows any origin
	GRPCHealthAddr  string        `envconfig:"SERVER_GRPC_HEALTH_ADDR"` // e.g. ":9090"; empty disables
	TrustedProxies  []string      `envconfig:"SERVER_TRUSTED_PROXIES"`  // IPs or CIDRs allowed to set X-Forwarded-For
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port cannot be empty")
	}
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return errors.New("idle timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return err
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host           string        `envconfig:"DB_HOST" required:"true"`
	Port           string        `envconfig:"DB_PORT" default:"5432"`
	User           string        `envconfig:"DB_USER" required:"true"`
	Password       string        `envconfig:"DB_PASSWORD" required:"true"`
	Name           string        `envconfig:"DB_NAME" required:"true"`
	SSLMode        string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns       int32         `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns       int32         `envconfig:"DB_MIN_CONNS" default:"2"`
	ConnectTimeout time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"15s"`
	MigrateOnStart bool          `envconfig:"DB_MIGRATE_ON_START" default:"true"`
}

var validSSLModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("host cannot be empty")
	case c.Port == "":
		return errors.New("port cannot be empty")
	case c.User == "":
		return errors.New("user cannot be empty")
	case c.Password == "":
		return errors.New("password cannot be empty")
	case c.Name == "":
		return errors.New("database name cannot be empty")
	case c.MaxConns <= 0:
		return errors.New("max connections must be positive")
	case c.MinConns < 0:
		return errors.New("min connections cannot be negative")
	case c.MinConns > c.MaxConns:
		return fmt.Errorf("min connections (%d) cannot be greater than max connections (%d)", c.MinConns, c.MaxConns)
	case c.ConnectTimeout <= 0:
		return errors.New("connect timeout must be positive")
	case !validSSLModes[c.SSLMode]:
		return fmt.Errorf("invalid SSL mode: %s (must be one of: disable, require, verify-ca, verify-full)", c.SSLMode)
	}
	return nil
}

// ConnectionString returns the PostgreSQL URL used by both pgxpool and migrations.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"` // development, staging, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`     // debug, info, warn, error
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	switch c.Environment {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// IsLocal reports whether .env files should be honoured.
func (c *AppConfig) IsLocal() bool {
	return c.Environment == "development" || c.Environment == "test"
}

// ObservabilityConfig holds service identity and metrics settings.
type ObservabilityConfig struct {
	ServiceName    string `envconfig:"SERVICE_NAME" default:"shortlinks"`
	ServiceVersion string `envconfig:"SERVICE_VERSION" default:"dev"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Validate validates the observability configuration.
func (c *ObservabilityConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}
	return nil
}

// minSecretLength is the shortest accepted HS256 signing secret.
const minSecretLength = 16

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret      string        `envconfig:"AUTH_JWT_SECRET" required:"true"`
	JWTIssuer      string        `envconfig:"AUTH_JWT_ISSUER"`
	TokenTTL       time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
	AllowAnonymous bool          `envconfig:"AUTH_ALLOW_ANONYMOUS" default:"false"` // lets POST /shorten run without a token
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	if c.TokenTTL < 0 {
		return errors.New("token ttl cannot be negative")
	}
	return nil
}

// ShortenerConfig tunes code generation and click recording.
type ShortenerConfig struct {
	CodeLength     int           `envconfig:"SHORTENER_CODE_LENGTH" default:"7"`
	CodeMaxRetries int           `envconfig:"SHORTENER_CODE_MAX_RETRIES" default:"5"`
	ClickTimeout   time.Duration `envconfig:"SHORTENER_CLICK_TIMEOUT" default:"2s"`
}

// Validate validates the shortener configuration.
func (c *ShortenerConfig) Validate() error {
	if c.CodeLength < 3 || c.CodeLength > 64 {
		return fmt.Errorf("code length must be between 3 and 64, got %d", c.CodeLength)
	}
	if c.CodeMaxRetries < 1 {
		return errors.New("code max retries must be at least 1")
	}
	if c.ClickTimeout <= 0 {
		return errors.New("click timeout must be positive")
	}
	return nil
}

// RedisConfig holds the optional cache and rate limiter settings.
type RedisConfig struct {
	Addr                  string        `envconfig:"REDIS_ADDR"` // empty disables Redis
	Password              string        `envconfig:"REDIS_PASSWORD"`
	DB                    int           `envconfig:"REDIS_DB" default:"0"`
	ConnectTimeout        time.Duration `envconfig:"REDIS_CONNECT_TIMEOUT" default:"15s"`
	CacheTTL              time.Duration `envconfig:"REDIS_CACHE_TTL" default:"1h"`
	CachePrefix           string        `envconfig:"REDIS_CACHE_PREFIX" default:"dest"`
	RateLimitEnabled      bool          `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
	RateLimitCapacity     int           `envconfig:"RATE_LIMIT_CAPACITY" default:"100"`
	RateLimitRefillRate   int           `envconfig:"RATE_LIMIT_REFILL_RATE" default:"100"`
	RateLimitRefillPeriod time.Duration `envconfig:"RATE_LIMIT_REFILL_PERIOD" default:"15m"`
}

// Enabled reports whether a Redis server is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Validate validates the redis configuration.
func (c *RedisConfig) Validate() error {
	if c.RateLimitEnabled && !c.Enabled() {
		return errors.New("rate limiting requires REDIS_ADDR")
	}
	if !c.Enabled() {
		return nil
	}
	switch {
	case c.DB < 0:
		return errors.New("redis db cannot be negative")
	case c.ConnectTimeout <= 0:
		return errors.New("redis connect timeout must be positive")
	case c.CacheTTL <= 0:
		return errors.New("cache ttl must be positive")
	case c.CachePrefix == "":
		return errors.New("cache prefix cannot be empty")
	}
	if c.RateLimitEnabled {
		switch {
		case c.RateLimitCapacity <= 0:
			return errors.New("rate limit capacity must be positive")
		case c.RateLimitRefillRate <= 0:
			return errors.New("rate limit refill rate must be positive")
		case c.RateLimitRefillPeriod < time.Second:
			return errors.New("rate limit refill period must be at least 1s")
		}
	}
	return nil
}

type validator interface {
	Validate() error
}

// Load loads configuration from environment variables only.
// (Do .env loading in cmd/server/main.go for dev, not here.)
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name string
		spec validator
	}{
		{"Server", &cfg.Server},
		{"Database", &cfg.Database},
		{"App", &cfg.App},
		{"Observability", &cfg.Observability},
		{"Auth", &cfg.Auth},
		{"Shortener", &cfg.Shortener},
		{"Redis", &cfg.Redis},
	}

	for _, s := range sections {
		if err := envconfig.Process("", s.spec); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
		if err := s.spec.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}
