package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Admin    AdminConfig
}

type DatabaseConfig struct {
	URL               string        `env:"DATABASE_URL"`
	Host              string        `env:"DB_HOST, default=localhost"`
	Port              int           `env:"DB_PORT, default=5432"`
	User              string        `env:"DB_USER, default=postgres"`
	Password          string        `env:"DB_PASSWORD"`
	Name              string        `env:"DB_NAME, default=healthdesk"`
	SSLMode           string        `env:"DB_SSLMODE, default=disable"`
	MaxConns          int32         `env:"DB_MAX_CONNS, default=25"`
	MinConns          int32         `env:"DB_MIN_CONNS, default=5"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME, default=5m"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME, default=1m"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD, default=1m"`
	AutoMigrate       bool          `env:"DB_AUTO_MIGRATE, default=true"`
}

type ServerConfig struct {
	Port           string        `env:"PORT, default=8080"`
	Env            string        `env:"ENV, default=development"`
	LogLevel       string        `env:"LOG_LEVEL, default=info"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS"`
	TrustedProxies []string      `env:"TRUSTED_PROXIES"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT, default=15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT, default=15s"`
	IdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT, default=60s"`
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT, default=60s"`
}

type AuthConfig struct {
	JWTSecret               string        `env:"JWT_SECRET"`
	AccessTokenExpiry       time.Duration `env:"ACCESS_TOKEN_EXPIRY, default=1h"`
	RefreshTokenExpiry      time.Duration `env:"REFRESH_TOKEN_EXPIRY, default=168h"`
	CleanupInterval         time.Duration `env:"TOKEN_CLEANUP_INTERVAL, default=1h"`
	BcryptCost              int           `env:"BCRYPT_COST, default=12"`
	LoginRateLimitPerMinute int           `env:"LOGIN_RATE_LIMIT_PER_MINUTE, default=5"`
	TimingDelayBaseMs       int           `env:"TIMING_DELAY_BASE_MS, default=100"`
	TimingDelayRandomMs     int           `env:"TIMING_DELAY_RANDOM_MS, default=50"`
	CookieDomain            string        `env:"COOKIE_DOMAIN"`
	CookieSecure            bool          `env:"COOKIE_SECURE, default=false"`
	CookieSameSite          string        `env:"COOKIE_SAMESITE, default=lax"`
}

// AdminConfig seeds the first admin account at startup when both fields are set.
type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME"`
	Password string `env:"ADMIN_PASSWORD"`
}

// Load reads a local .env file if present and then the process environment.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom decodes and validates configuration from the given lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.Database.URL == "" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when DATABASE_URL is not set")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(cfg.Auth.JWTSecret, cfg.Server.Env); err != nil {
		return nil, err
	}

	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 31 (got %d)", cfg.Auth.BcryptCost)
	}

	cfg.Server.AllowedOrigins = parseAllowedOrigins(cfg.Server.Env, cfg.Server.AllowedOrigins)

	return &cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// DSN returns DATABASE_URL when set, otherwise a keyword/value connection string.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseAllowedOrigins(env string, configured []string) []string {
	origins := make([]string, 0, len(configured))
	for _, origin := range configured {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	if len(origins) > 0 || env == "production" {
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite default
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:8080",
	}
}
