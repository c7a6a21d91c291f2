package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/imagebot/core/config"
	"github.com/m3rciful/imagebot/core/database"
)

func validConfig() Config {
	return Config{
		Config:   coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "123:abc"}},
		Database: database.Config{Driver: database.DriverSQLite, Path: ":memory:"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Normalize())

	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, time.Minute, cfg.Prompt.SweepInterval)
	assert.Zero(t, cfg.Prompt.PendingTTL)
	assert.Zero(t, cfg.Audit.RetentionDays)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestNormalizeRejectsInvalidValues(t *testing.T) {
	cases := map[string]func(*Config){
		"missing token":      func(c *Config) { c.Telegram.Token = "" },
		"bad driver":         func(c *Config) { c.Database.Driver = "mysql" },
		"negative ttl":       func(c *Config) { c.Prompt.PendingTTL = -time.Second },
		"negative retention": func(c *Config) { c.Audit.RetentionDays = -1 },
		"negative timeout":   func(c *Config) { c.Gemini.Timeout = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Normalize())
		})
	}
}

func TestLoadReadsAllSections(t *testing.T) {
	unsetEnv(t, "BOT_TOKEN", "TELEGRAM_RUN_MODE", "DB_DRIVER", "DB_PATH", "GEMINI_API_KEY",
		"GEMINI_TIMEOUT", "PROMPT_PENDING_TTL", "PROMPT_SWEEP_INTERVAL", "AUDIT_RETENTION_DAYS")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: "123:abc"
  run_mode: polling
database:
  driver: sqlite
  path: bot.db
gemini:
  api_key: key
  timeout: 90s
prompt:
  pending_ttl: 10m
audit:
  retention_days: 30
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, database.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "bot.db", cfg.Database.Path)
	assert.Equal(t, "key", cfg.Gemini.APIKey)
	assert.Equal(t, 90*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Prompt.PendingTTL)
	assert.Equal(t, time.Minute, cfg.Prompt.SweepInterval)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
}

// unsetEnv removes keys for the duration of the test; envconfig treats an empty
// variable as set.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}
