// Package summarizer provides AI-powered article summarization with
// Anthropic and OpenAI providers, bounded retry with rate-limit wait hints,
// and hard length truncation.
package summarizer

import (
	"fmt"
	"time"
)

// Provider kinds selectable via configuration.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderNoop      = "noop"
)

const (
	// DefaultMaxSummaryLen is the hard cap on summary length in runes.
	DefaultMaxSummaryLen = 2000

	// maxInputChars caps the article text sent to the provider. Longer
	// articles are cut to stay well inside model context windows.
	maxInputChars = 10000
)

// Config holds summarizer settings.
type Config struct {
	// Provider selects the backend: anthropic, openai, or noop.
	Provider string `yaml:"provider"`

	// APIKey authenticates against the selected provider.
	APIKey string `yaml:"api_key"`

	// Model is the provider model identifier. Empty selects the provider's
	// default.
	Model string `yaml:"model"`

	// MaxTokens bounds the provider response.
	MaxTokens int `yaml:"max_tokens"`

	// MaxSummaryLen is the hard cap on summary length in runes.
	MaxSummaryLen int `yaml:"max_summary_len"`

	// Timeout bounds one provider API call.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default summarizer configuration.
func DefaultConfig() Config {
	return Config{
		Provider:      ProviderAnthropic,
		MaxTokens:     1024,
		MaxSummaryLen: DefaultMaxSummaryLen,
		Timeout:       60 * time.Second,
	}
}

// Validate checks the configuration, applying defaults for zero values.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("summarizer provider %s requires an api key", c.Provider)
		}
	case ProviderNoop:
	case "":
		return fmt.Errorf("summarizer provider is required")
	default:
		return fmt.Errorf("unknown summarizer provider: %s", c.Provider)
	}

	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultConfig().MaxTokens
	}
	if c.MaxSummaryLen <= 0 {
		c.MaxSummaryLen = DefaultMaxSummaryLen
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultConfig().Timeout
	}
	return nil
}

// buildPrompt constructs the summarization instruction for an article.
func buildPrompt(title, content string) string {
	return fmt.Sprintf(
		"Summarize the following news article in 2-3 concise sentences. "+
			"Focus on the key facts and why they matter. "+
			"Respond with the summary only.\n\nTitle: %s\n\n%s",
		title, content)
}
