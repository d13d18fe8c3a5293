package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	LicenseStore       string        `env:"LICENSE_STORE" envDefault:"postgres"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	DatabaseServiceKey string        `env:"DATABASE_SERVICE_KEY"`
	SQLitePath         string        `env:"SQLITE_PATH" envDefault:"licenses.db"`
	AutoMigrate        bool          `env:"AUTO_MIGRATE" envDefault:"false"`
	StoreTimeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// Empty is allowed at startup; issuance then answers missing_admin_secret.
	AdminIssueSecret string `env:"ADMIN_ISSUE_SECRET"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	EmailFrom    string `env:"EMAIL_FROM" envDefault:"licenses@calltrack.pro"`

	SentryDSN string `env:"SENTRY_DSN"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// New loads .env when present, then reads the environment.
func New() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment without touching .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.CORSAllowedOrigins = trimAll(cfg.CORSAllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.LicenseStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			result = multierror.Append(result, errors.New("DATABASE_URL environment variable is required"))
		}
		if c.DatabaseServiceKey == "" {
			result = multierror.Append(result, errors.New("DATABASE_SERVICE_KEY environment variable is required"))
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			result = multierror.Append(result, errors.New("SQLITE_PATH must not be empty"))
		}
	case StoreMemory:
	default:
		result = multierror.Append(result, fmt.Errorf("LICENSE_STORE %q is not one of postgres, sqlite, memory", c.LicenseStore))
	}

	if c.StoreTimeout <= 0 {
		result = multierror.Append(result, errors.New("STORE_TIMEOUT must be positive"))
	}

	smtpSet := []string{c.SMTPHost, c.SMTPPort, c.SMTPUsername, c.SMTPPassword}
	var n int
	for _, v := range smtpSet {
		if v != "" {
			n++
		}
	}
	if n != 0 && n != len(smtpSet) {
		result = multierror.Append(result, errors.New("SMTP_HOST, SMTP_PORT, SMTP_USERNAME, and SMTP_PASSWORD must be set together"))
	}

	return result.ErrorOrNil()
}

func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPPort != "" && c.SMTPUsername != "" && c.SMTPPassword != ""
}

func (c *Config) StripeConfigured() bool {
	return c.StripeWebhookSecret != ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
