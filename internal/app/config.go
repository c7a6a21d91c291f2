package app

import (
	"fmt"
	"time"

	coreconfig "github.com/m3rciful/imagebot/core/config"
	"github.com/m3rciful/imagebot/core/database"
	"github.com/m3rciful/imagebot/internal/imagegen"
)

const defaultSweepInterval = time.Minute

// PromptConfig bounds how long a pending prompt waits for its description.
type PromptConfig struct {
	// PendingTTL expires pending prompts older than this; 0 keeps them until used or cancelled.
	PendingTTL    time.Duration `yaml:"pending_ttl" envconfig:"PROMPT_PENDING_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"PROMPT_SWEEP_INTERVAL"`
}

// AuditConfig controls command log retention.
type AuditConfig struct {
	// RetentionDays prunes older command logs once a day; 0 keeps everything.
	RetentionDays int `yaml:"retention_days" envconfig:"AUDIT_RETENTION_DAYS"`
}

// Config is the imagebot configuration: the shared core sections plus the bot's own.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database database.Config `yaml:"database"`
	Gemini   imagegen.Config `yaml:"gemini"`
	Prompt   PromptConfig    `yaml:"prompt"`
	Audit    AuditConfig     `yaml:"audit"`
}

// CoreConfig returns the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, applies the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}
	if c.Gemini.Timeout < 0 {
		return fmt.Errorf("gemini.timeout must be >= 0")
	}
	if c.Prompt.PendingTTL < 0 {
		return fmt.Errorf("prompt.pending_ttl must be >= 0")
	}
	if c.Prompt.SweepInterval <= 0 {
		c.Prompt.SweepInterval = defaultSweepInterval
	}
	if c.Audit.RetentionDays < 0 {
		return fmt.Errorf("audit.retention_days must be >= 0")
	}
	return nil
}
