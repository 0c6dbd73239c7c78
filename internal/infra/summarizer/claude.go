package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"newsdigest/internal/resilience/circuitbreaker"
	"newsdigest/internal/utils/text"
)

const defaultClaudeModel = "claude-sonnet-4-5-20250929"

// Claude generates summaries through Anthropic's Messages API.
type Claude struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	cfg            Config
}

// NewClaude creates a Claude provider from the given configuration.
func NewClaude(cfg Config) *Claude {
	if cfg.Model == "" {
		cfg.Model = defaultClaudeModel
	}

	slog.Info("initialized claude summarizer",
		slog.String("model", cfg.Model),
		slog.Int("max_tokens", cfg.MaxTokens))

	return &Claude{
		client:         anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.SummarizerConfig()),
		cfg:            cfg,
	}
}

// Summarize generates a summary of prompt text. One attempt; retry policy is
// applied by the calling Service.
func (c *Claude) Summarize(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doSummarize(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// doSummarize performs the API call without the circuit breaker.
func (c *Claude) doSummarize(ctx context.Context, prompt string) (string, error) {
	requestID := uuid.New().String()
	start := time.Now()

	slog.InfoContext(ctx, "starting summarization",
		slog.String("request_id", requestID),
		slog.String("provider", ProviderAnthropic),
		slog.Int("input_length", text.CountRunes(prompt)))

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(c.cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	duration := time.Since(start)

	if err != nil {
		slog.ErrorContext(ctx, "summarization failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return "", fmt.Errorf("claude api error: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	slog.InfoContext(ctx, "summarization completed",
		slog.String("request_id", requestID),
		slog.Int("summary_length", text.CountRunes(textBlock.Text)),
		slog.Duration("duration", duration))

	return textBlock.Text, nil
}
