package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the web service.
type Config struct {
	Addr           string        `env:"ADDR,default=:8080"`
	DBDSN          string        `env:"DB_DSN,required"`
	JWTSigningKey  string        `env:"JWT_SIGNING_KEY,required"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL,default=15m"`
	SessionTTL     time.Duration `env:"SESSION_TTL,default=168h"`

	CookieName     string `env:"COOKIE_NAME,default=volunteer-verse-auth"`
	CookieDomain   string `env:"COOKIE_DOMAIN"`
	CookieSecure   bool   `env:"COOKIE_SECURE,default=false"`
	CookieHTTPOnly bool   `env:"COOKIE_HTTP_ONLY,default=false"`

	GateFailOpen bool   `env:"GATE_FAIL_OPEN,default=true"`
	RoutesFile   string `env:"ROUTES_FILE"`

	RedisURL         string        `env:"REDIS_URL"`
	LoginRateLimit   int           `env:"LOGIN_RATE_LIMIT,default=10"`
	LoginRateWindow  time.Duration `env:"LOGIN_RATE_WINDOW,default=15m"`
	RequestRateLimit int           `env:"REQUEST_RATE_LIMIT,default=100"`

	NATSURL string `env:"NATS_URL"`

	S3Bucket       string        `env:"S3_BUCKET,default=volunteerverse-media"`
	MediaUploadTTL time.Duration `env:"MEDIA_UPLOAD_TTL,default=15m"`

	OTLPEndpoint   string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=console"`
}

// CLI holds configuration for vvctl.
type CLI struct {
	DBDSN            string `env:"DB_DSN,required"`
	ExportSigningKey string `env:"EXPORT_SIGNING_KEY"`
	ExportPublicKey  string `env:"EXPORT_PUBLIC_KEY"`
}

// Export holds the catalogue signing keys. Verification needs only the public key.
type Export struct {
	ExportSigningKey string `env:"EXPORT_SIGNING_KEY"`
	ExportPublicKey  string `env:"EXPORT_PUBLIC_KEY"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadCLI returns the vvctl configuration.
func LoadCLI(ctx context.Context) (CLI, error) {
	var cfg CLI
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return CLI{}, err
	}
	return cfg, nil
}

// LoadExport returns the export keys without requiring a database.
func LoadExport(ctx context.Context) (Export, error) {
	return loadExport(ctx, envconfig.OsLookuper())
}

func loadExport(ctx context.Context, lookuper envconfig.Lookuper) (Export, error) {
	var cfg Export
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return Export{}, err
	}
	if cfg.ExportSigningKey == "" && cfg.ExportPublicKey == "" {
		return Export{}, errors.New("EXPORT_SIGNING_KEY or EXPORT_PUBLIC_KEY is required")
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.JWTSigningKey) < 32 {
		return errors.New("JWT_SIGNING_KEY must be at least 32 bytes")
	}
	if c.AccessTokenTTL <= 0 || c.SessionTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL and SESSION_TTL must be positive")
	}
	if c.AccessTokenTTL > c.SessionTTL {
		return fmt.Errorf("ACCESS_TOKEN_TTL (%s) exceeds SESSION_TTL (%s)", c.AccessTokenTTL, c.SessionTTL)
	}
	if c.LoginRateLimit <= 0 || c.LoginRateWindow <= 0 {
		return errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_WINDOW must be positive")
	}
	if c.RequestRateLimit <= 0 {
		return errors.New("REQUEST_RATE_LIMIT must be positive")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// Logger builds the process logger described by LOG_LEVEL and LOG_FORMAT.
func (c Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if c.LogFormat == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Str("service", "volunteerverse").Logger()
}
