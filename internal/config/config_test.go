package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaikumar96/fincategorizer/internal/common"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, 0.85, cfg.Triage.AutoAccept)
	assert.Equal(t, 0.60, cfg.Triage.NeedsReview)
	assert.Equal(t, 1000, cfg.Ingest.MaxBatchSize)
	assert.Equal(t, "INR", cfg.Ingest.DefaultCurrency)
	assert.Equal(t, 10*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, 7*24*time.Hour, cfg.Classifier.CacheTTL)
	assert.Zero(t, cfg.Classifier.MaxRetries)
	assert.False(t, cfg.Redis.Enabled())
	assert.NotContains(t, cfg.Database.Path, "$HOME")
	assert.Equal(t, int64(1), cfg.CLI.UserID)
	assert.Equal(t, 5*time.Second, cfg.Review.LockTTL)
	assert.False(t, cfg.Server.TLS)
	assert.True(t, strings.HasSuffix(cfg.Server.CertDir, "fincat/certs"))
}

func TestLoad_Overrides(t *testing.T) {
	v := newViper()
	v.Set("triage.auto_accept", 0.9)
	v.Set("triage.needs_review", 0.5)
	v.Set("classifier.url", "http://ml:8000/")
	v.Set("ingest.default_currency", " usd ")
	v.Set("redis.addr", "localhost:6379")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Triage.AutoAccept)
	assert.Equal(t, "http://ml:8000", cfg.Classifier.URL)
	assert.Equal(t, "USD", cfg.Ingest.DefaultCurrency)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FINCAT_INGEST_MAX_BATCH_SIZE", "50")

	v := newViper()
	BindEnv(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Ingest.MaxBatchSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
		name  string
	}{
		{name: "inverted thresholds", key: "triage.needs_review", value: 0.95},
		{name: "bad log level", key: "logging.level", value: "verbose"},
		{name: "bad log format", key: "logging.format", value: "xml"},
		{name: "zero batch size", key: "ingest.max_batch_size", value: 0},
		{name: "zero workers", key: "ingest.workers", value: 0},
		{name: "zero timeout", key: "classifier.timeout", value: "0s"},
		{name: "non http url", key: "classifier.url", value: "ml:8000"},
		{name: "anonymous cli user", key: "cli.user_id", value: 0},
		{name: "zero lock ttl", key: "review.lock_ttl", value: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FINCAT_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("FINCAT_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("FINCAT_TEST_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("FINCAT_TEST_DIR", "/srv/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "db.sqlite"), ExpandPath("~/db.sqlite"))
	assert.Equal(t, "/srv/data/fincat.db", ExpandPath("$FINCAT_TEST_DIR/fincat.db"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}
