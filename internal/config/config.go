// Package config provides configuration utilities for the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/triage"
)

// EnvPrefix is the prefix for environment variable overrides (FINCAT_DATABASE_PATH, ...).
const EnvPrefix = "FINCAT"

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "$HOME/.local/share/fincat/fincat.db"

// DefaultCertDir holds the self-signed certificate for server.tls.
const DefaultCertDir = "$HOME/.config/fincat/certs"

// Config is the fully resolved application configuration.
type Config struct {
	Database   DatabaseConfig
	Logging    LoggingConfig
	Server     ServerConfig
	Classifier ClassifierConfig
	Redis      RedisConfig
	Ingest     IngestConfig
	Triage     triage.Thresholds
	Review     ReviewConfig
	CLI        CLIConfig
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string
	CertDir         string
	ShutdownTimeout time.Duration
	TLS             bool
}

// ClassifierConfig controls how the categorization service is reached.
// An empty URL selects the built-in keyword classifier.
type ClassifierConfig struct {
	URL        string
	Timeout    time.Duration
	RateLimit  float64
	Burst      int
	// MaxRetries is how often a rate-limited call is resent. Other failures
	// are never retried.
	MaxRetries int
	CacheTTL   time.Duration
}

// RedisConfig enables the shared merchant cache and distributed correction
// locks when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether Redis was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// IngestConfig bounds batch ingestion.
type IngestConfig struct {
	DefaultCurrency string
	MaxBatchSize    int
	Workers         int
}

// ReviewConfig controls correction locking.
type ReviewConfig struct {
	LockTTL time.Duration
}

// CLIConfig holds settings that only apply to the command line tools.
type CLIConfig struct {
	// Theme names the review TUI color scheme.
	Theme  string
	UserID int64
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.tls", false)
	v.SetDefault("server.cert_dir", DefaultCertDir)
	v.SetDefault("classifier.url", "")
	v.SetDefault("classifier.timeout", 10*time.Second)
	v.SetDefault("classifier.rate_limit", 20.0)
	v.SetDefault("classifier.burst", 5)
	v.SetDefault("classifier.max_retries", 0)
	v.SetDefault("classifier.cache_ttl", 7*24*time.Hour)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ingest.default_currency", "INR")
	v.SetDefault("ingest.max_batch_size", 1000)
	v.SetDefault("ingest.workers", 8)
	v.SetDefault("triage.auto_accept", triage.DefaultAutoAccept)
	v.SetDefault("triage.needs_review", triage.DefaultNeedsReview)
	v.SetDefault("review.lock_ttl", 5*time.Second)
	v.SetDefault("cli.user_id", 1)
	v.SetDefault("cli.theme", "default")
}

// BindEnv enables FINCAT_ prefixed environment overrides on v, mapping
// nested keys with underscores (FINCAT_CLASSIFIER_URL).
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads a .env file into the process environment if one exists.
// Variables already set are not overridden.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load resolves the typed configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			TLS:             v.GetBool("server.tls"),
			CertDir:         ExpandPath(v.GetString("server.cert_dir")),
		},
		Classifier: ClassifierConfig{
			URL:        strings.TrimRight(v.GetString("classifier.url"), "/"),
			Timeout:    v.GetDuration("classifier.timeout"),
			RateLimit:  v.GetFloat64("classifier.rate_limit"),
			Burst:      v.GetInt("classifier.burst"),
			MaxRetries: v.GetInt("classifier.max_retries"),
			CacheTTL:   v.GetDuration("classifier.cache_ttl"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Ingest: IngestConfig{
			DefaultCurrency: strings.ToUpper(strings.TrimSpace(v.GetString("ingest.default_currency"))),
			MaxBatchSize:    v.GetInt("ingest.max_batch_size"),
			Workers:         v.GetInt("ingest.workers"),
		},
		Triage: triage.Thresholds{
			AutoAccept:  v.GetFloat64("triage.auto_accept"),
			NeedsReview: v.GetFloat64("triage.needs_review"),
		},
		Review: ReviewConfig{
			LockTTL: v.GetDuration("review.lock_ttl"),
		},
		CLI: CLIConfig{
			UserID: v.GetInt64("cli.user_id"),
			Theme:  v.GetString("cli.theme"),
		},
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = ExpandPath(DefaultDatabasePath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if err := c.Triage.Validate(); err != nil {
		return fmt.Errorf("triage: %w", err)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	if c.Ingest.MaxBatchSize <= 0 {
		return fmt.Errorf("%w: ingest.max_batch_size must be positive", common.ErrInvalidConfig)
	}
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("%w: ingest.workers must be positive", common.ErrInvalidConfig)
	}
	if c.Ingest.DefaultCurrency == "" {
		return fmt.Errorf("%w: ingest.default_currency is required", common.ErrMissingConfig)
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("%w: classifier.timeout must be positive", common.ErrInvalidConfig)
	}
	if c.Classifier.RateLimit <= 0 || c.Classifier.Burst <= 0 {
		return fmt.Errorf("%w: classifier.rate_limit and classifier.burst must be positive", common.ErrInvalidConfig)
	}
	if c.Classifier.MaxRetries < 0 {
		return fmt.Errorf("%w: classifier.max_retries must not be negative", common.ErrInvalidConfig)
	}
	if c.CLI.UserID <= 0 {
		return fmt.Errorf("%w: cli.user_id must be positive", common.ErrInvalidConfig)
	}
	if c.Review.LockTTL <= 0 {
		return fmt.Errorf("%w: review.lock_ttl must be positive", common.ErrInvalidConfig)
	}
	if c.Classifier.URL != "" && !strings.HasPrefix(c.Classifier.URL, "http://") && !strings.HasPrefix(c.Classifier.URL, "https://") {
		return fmt.Errorf("%w: classifier.url must be an http(s) URL, got %q", common.ErrInvalidConfig, c.Classifier.URL)
	}
	return nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
