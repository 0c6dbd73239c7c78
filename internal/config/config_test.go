package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"newsdigest/internal/domain/entity"
)

const sampleYAML = `
sources:
  - name: hn
    feed_url: https://news.ycombinator.com/rss
    keywords: [ai, llm]
  - name: mirror
    feed_url: https://mirror.example.com/feed
    kind: proxy
    field_map:
      item: div.entry
      title: h2 a
      link: h2 a
      content: div.body
      date: span.date
summarizer:
  provider: noop
notion:
  api_key: secret_test
  database_id: db-123
pipeline:
  source_timeout: 45s
  summarizer_parallelism: 3
  retention_days: 14
ledger:
  path: /tmp/test-ledger.db
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, want 2", len(cfg.Sources))
	}
	if cfg.Sources[0].Kind != entity.KindRSS {
		t.Errorf("Sources[0].Kind = %q, want %q after validation", cfg.Sources[0].Kind, entity.KindRSS)
	}
	if cfg.Sources[1].Kind != entity.KindProxy {
		t.Errorf("Sources[1].Kind = %q", cfg.Sources[1].Kind)
	}
	if cfg.Sources[1].FieldMap == nil || cfg.Sources[1].FieldMap.Item != "div.entry" {
		t.Errorf("Sources[1].FieldMap = %+v", cfg.Sources[1].FieldMap)
	}

	if cfg.Pipeline.SourceTimeout != 45*time.Second {
		t.Errorf("Pipeline.SourceTimeout = %v", cfg.Pipeline.SourceTimeout)
	}
	if cfg.Pipeline.SummarizerParallelism != 3 {
		t.Errorf("Pipeline.SummarizerParallelism = %d", cfg.Pipeline.SummarizerParallelism)
	}
	if cfg.Pipeline.MaxPerSource != 50 {
		t.Errorf("Pipeline.MaxPerSource = %d, want default 50", cfg.Pipeline.MaxPerSource)
	}
	if cfg.Reports.Dir != "data/reports" {
		t.Errorf("Reports.Dir = %q, want default", cfg.Reports.Dir)
	}
	if cfg.Ledger.Path != "/tmp/test-ledger.db" {
		t.Errorf("Ledger.Path = %q", cfg.Ledger.Path)
	}
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "secret_from_env")
	t.Setenv("NOTION_DATABASE_ID", "db-from-env")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Notion.APIKey != "secret_from_env" {
		t.Errorf("Notion.APIKey = %q", cfg.Notion.APIKey)
	}
	if cfg.Notion.DatabaseID != "db-from-env" {
		t.Errorf("Notion.DatabaseID = %q", cfg.Notion.DatabaseID)
	}
}

func TestLoad_SummarizerKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	body := `
sources:
  - name: hn
    feed_url: https://news.ycombinator.com/rss
summarizer:
  provider: anthropic
notion:
  api_key: secret_test
  database_id: db-123
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Summarizer.APIKey != "sk-ant-test" {
		t.Errorf("Summarizer.APIKey = %q", cfg.Summarizer.APIKey)
	}
}

func TestLoad_MissingCredentialsFails(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	body := `
sources:
  - name: hn
    feed_url: https://news.ycombinator.com/rss
summarizer:
  provider: anthropic
notion:
  api_key: secret_test
  database_id: db-123
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Error("Load() with no anthropic key should fail")
	}
}

func TestLoad_NoSourcesFails(t *testing.T) {
	body := `
summarizer:
  provider: noop
notion:
  api_key: secret_test
  database_id: db-123
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Error("Load() with no sources should fail")
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() on a missing file should fail")
	}
}
