package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/observability/metrics"
	"newsdigest/internal/resilience/retry"
	"newsdigest/internal/utils/text"
)

// Provider generates a summary for a single prompt. Implementations make one
// attempt; the Service owns the retry policy.
type Provider interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Service wraps a Provider with bounded retry, error classification, and
// hard length truncation. A failed summarization never fails the batch: the
// article keeps an empty summary and the error is reported for accounting.
type Service struct {
	provider Provider
	retryCfg retry.Config
	maxLen   int
}

// NewService creates a summarization service around the given provider.
func NewService(provider Provider, cfg Config) *Service {
	maxLen := cfg.MaxSummaryLen
	if maxLen <= 0 {
		maxLen = DefaultMaxSummaryLen
	}
	return &Service{
		provider: provider,
		retryCfg: retry.SummarizerConfig(),
		maxLen:   maxLen,
	}
}

// NewFromConfig builds the provider selected by cfg.Provider and wraps it in
// a Service.
func NewFromConfig(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var provider Provider
	switch cfg.Provider {
	case ProviderAnthropic:
		provider = NewClaude(cfg)
	case ProviderOpenAI:
		provider = NewOpenAI(cfg)
	case ProviderNoop:
		provider = NewNoOp()
	default:
		return nil, fmt.Errorf("unknown summarizer provider: %s", cfg.Provider)
	}

	return NewService(provider, cfg), nil
}

// SummarizeArticle summarizes one article in place. Rate-limit wait hints
// from the provider are honored between attempts; other retryable failures
// back off exponentially. When all attempts fail the article keeps an empty
// summary and the last error is returned for accounting only.
func (s *Service) SummarizeArticle(ctx context.Context, art *entity.Article) error {
	input := art.Content
	if input == "" {
		input = art.Title
	}
	if text.CountRunes(input) > maxInputChars {
		input = text.TruncateRunes(input, maxInputChars)
	}
	prompt := buildPrompt(art.Title, input)

	start := time.Now()
	var summary string
	err := retry.WithBackoff(ctx, s.retryCfg, Classify, func() error {
		result, callErr := s.provider.Summarize(ctx, prompt)
		if callErr != nil {
			return callErr
		}
		summary = result
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		art.Summary = ""
		metrics.RecordSummary(false, duration)
		slog.Warn("summarization exhausted retries, keeping article without summary",
			slog.String("article_id", art.ID),
			slog.String("title", art.Title),
			slog.Any("error", err))
		return err
	}

	art.Summary = text.TruncateRunes(summary, s.maxLen)
	metrics.RecordSummary(true, duration)
	return nil
}
