package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"spaceclouds/analytics/utils"
)

// Config is the runtime configuration of the analytics agent.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"debug"`

	Storage   StorageConfig
	Tracking  TrackingConfig
	Logging   LoggingConfig
	Dashboard DashboardConfig
}

// StorageConfig selects where the analytics blob lives.
type StorageConfig struct {
	Backend     string `env:"STORAGE_BACKEND" envDefault:"file"`
	Path        string `env:"STORAGE_PATH"`
	DatabaseURL string `env:"DATABASE_URL"`
	Key         string `env:"STORAGE_KEY" envDefault:"spaceclouds_analytics"`
	// QuotaBytes caps the serialized blob; 0 disables the cap.
	QuotaBytes int64 `env:"STORAGE_QUOTA_BYTES" envDefault:"5242880"`
}

// TrackingConfig tunes the event log and the page trackers.
type TrackingConfig struct {
	MaxEvents         int           `env:"MAX_EVENTS" envDefault:"10000"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"5m"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// DashboardConfig guards the dashboard endpoints.
type DashboardConfig struct {
	Origin       string        `env:"FE_ORIGIN" envDefault:"http://localhost:3000"`
	APIKey       string        `env:"AUTH_DEFAULT"`
	JWTSecret    string        `env:"JWT_SECRET_KEY"`
	PasswordHash string        `env:"DASHBOARD_PASSWORD_HASH"`
	TokenTTL     time.Duration `env:"DASHBOARD_TOKEN_TTL" envDefault:"24h"`
}

// Load reads .env files when present and then the process environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultPath(cfg.Storage.Backend)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultPath(backend string) string {
	switch backend {
	case utils.BackendFile:
		return "data"
	case utils.BackendSQLite:
		return "data/analytics.db"
	default:
		return ""
	}
}

func (c Config) Validate() error {
	var errs []error
	if !utils.IsValidStorageBackend(c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend))
	}
	if c.Storage.Backend == utils.BackendPostgres && strings.TrimSpace(c.Storage.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		errs = append(errs, errors.New("STORAGE_KEY must not be empty"))
	}
	if c.Storage.QuotaBytes < 0 {
		errs = append(errs, errors.New("STORAGE_QUOTA_BYTES must not be negative"))
	}
	if c.Tracking.MaxEvents <= 0 {
		errs = append(errs, errors.New("MAX_EVENTS must be positive"))
	}
	if c.Tracking.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("HEARTBEAT_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}
