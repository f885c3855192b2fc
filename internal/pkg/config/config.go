package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// MinSecretLength is the shortest HS256 key accepted.
	MinSecretLength = 32

	MinTokenTTL = time.Minute
	MaxTokenTTL = 24 * time.Hour
)

// DefaultAllowedOrigins are the local frontends allowed when
// CORS_ALLOWED_ORIGINS is unset.
var DefaultAllowedOrigins = []string{
	"http://localhost:8001",
	"http://localhost:8080",
	"https://localhost:8443",
	"http://127.0.0.1:8001",
	"http://127.0.0.1:8080",
	"https://127.0.0.1:8443",
}

type Config struct {
	Port      string `env:"PORT,       default=8000"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`

	HTTP  HTTPConfig
	JWT   JWTConfig
	DB    DBConfig
	Mongo MongoConfig
	Redis RedisConfig
	Admin AdminConfig
	Login LoginConfig
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,     default=10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,    default=15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT, default=10s"`
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET"`
	Issuer string        `env:"JWT_ISSUER, default=secure-api"`
	TTL    time.Duration `env:"TOKEN_TTL,  default=30m"`
}

type DBConfig struct {
	Driver       string `env:"DB_DRIVER,         default=sqlite3"`
	DSN          string `env:"DB_DSN"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS, default=10"`
}

// MongoConfig enables the Mongo audit sink when URI is set.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=secure_api"`
}

// RedisConfig enables the shared denylist and login limiter when Addr is set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	DB       int    `env:"REDIS_DB, default=0"`
	Password string `env:"REDIS_PASSWORD"`
}

type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME, default=admin"`
	Email    string `env:"ADMIN_EMAIL,    default=admin@example.com"`
	Password string `env:"ADMIN_PASSWORD"`
}

type LoginConfig struct {
	RateLimit  int           `env:"LOGIN_RATE_LIMIT,  default=5"`
	RateWindow time.Duration `env:"LOGIN_RATE_WINDOW, default=1m"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	if c.DB.DSN == "" && c.DB.Driver == "sqlite3" {
		c.DB.DSN = "file:secure-api.db?_busy_timeout=5000&_foreign_keys=on"
	}
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// Validate rejects settings the server must not start with.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.JWT.Secret == "" && c.IsProduction():
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	case c.JWT.Secret != "" && len(c.JWT.Secret) < MinSecretLength:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength))
	}
	if c.JWT.TTL < MinTokenTTL || c.JWT.TTL > MaxTokenTTL {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be between %s and %s", MinTokenTTL, MaxTokenTTL))
	}

	switch c.DB.Driver {
	case "sqlite3", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported (sqlite3, postgres)", c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}
	if c.DB.MaxOpenConns < 1 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be positive"))
	}

	if c.Login.RateLimit < 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT must not be negative"))
	}
	if c.Login.RateWindow <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_WINDOW must be positive"))
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must list explicit origins"))
			break
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
