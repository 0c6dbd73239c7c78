// Package config loads the application configuration from a YAML file and
// overlays secrets from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/infra/notion"
	"newsdigest/internal/infra/summarizer"
)

// Config is the full application configuration.
type Config struct {
	Sources    []entity.Source   `yaml:"sources"`
	Summarizer summarizer.Config `yaml:"summarizer"`
	Notion     notion.Config     `yaml:"notion"`
	Pipeline   PipelineConfig    `yaml:"pipeline"`
	Ledger     LedgerConfig      `yaml:"ledger"`
	Reports    ReportConfig      `yaml:"reports"`
}

// PipelineConfig tunes the fetch and summarize stages.
type PipelineConfig struct {
	// SourceTimeout bounds one source's fetch. Default: 30s.
	SourceTimeout time.Duration `yaml:"source_timeout"`

	// MaxPerSource caps entries kept per source. Default: 50.
	MaxPerSource int `yaml:"max_per_source"`

	// ContentFetchEnabled turns on full-page content fetching for thin
	// entries. Off by default.
	ContentFetchEnabled bool `yaml:"content_fetch_enabled"`

	// ContentThreshold is the minimum content length below which the full
	// article body is fetched. Default: 600.
	ContentThreshold int `yaml:"content_threshold"`

	// SummarizerParallelism bounds concurrent summarization requests.
	// Default: 5.
	SummarizerParallelism int `yaml:"summarizer_parallelism"`

	// RetentionDays archives destination pages older than this many days.
	// Zero disables retention cleanup.
	RetentionDays int `yaml:"retention_days"`
}

// LedgerConfig locates the publish ledger database.
type LedgerConfig struct {
	// Path is the SQLite file path. Default: "data/ledger.db".
	Path string `yaml:"path"`
}

// ReportConfig locates persisted report files.
type ReportConfig struct {
	// Dir is the report output directory. Default: "data/reports".
	Dir string `yaml:"dir"`
}

// Load reads the YAML file at path, applies environment overrides for
// secrets, fills defaults and validates. Missing credentials are a hard
// error so the worker fails at startup instead of mid-cycle.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{Summarizer: summarizer.DefaultConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overlays secrets from the environment. Environment
// values win over file values so keys never need to live on disk.
func (c *Config) applyEnvOverrides() {
	switch c.Summarizer.Provider {
	case summarizer.ProviderAnthropic:
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			c.Summarizer.APIKey = v
		}
	case summarizer.ProviderOpenAI:
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.Summarizer.APIKey = v
		}
	}
	if v := os.Getenv("NOTION_API_KEY"); v != "" {
		c.Notion.APIKey = v
	}
	if v := os.Getenv("NOTION_DATABASE_ID"); v != "" {
		c.Notion.DatabaseID = v
	}
}

func (c *Config) applyDefaults() {
	if c.Pipeline.SourceTimeout <= 0 {
		c.Pipeline.SourceTimeout = 30 * time.Second
	}
	if c.Pipeline.MaxPerSource <= 0 {
		c.Pipeline.MaxPerSource = 50
	}
	if c.Pipeline.ContentThreshold <= 0 {
		c.Pipeline.ContentThreshold = 600
	}
	if c.Pipeline.SummarizerParallelism <= 0 {
		c.Pipeline.SummarizerParallelism = 5
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "data/ledger.db"
	}
	if c.Reports.Dir == "" {
		c.Reports.Dir = "data/reports"
	}
}

// Validate checks every section. Sources are validated in place so kind
// defaults are materialized.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("config: at least one source is required")
	}
	for i := range c.Sources {
		if err := c.Sources[i].Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if err := c.Summarizer.Validate(); err != nil {
		return fmt.Errorf("config: summarizer: %w", err)
	}
	if err := c.Notion.Validate(); err != nil {
		return fmt.Errorf("config: notion: %w", err)
	}
	return nil
}
