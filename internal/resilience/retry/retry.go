// Package retry provides retry logic with exponential backoff and jitter.
// Callers supply a Classifier that decides whether an error is transient,
// rate-limited (optionally carrying a server-suggested wait), or fatal,
// decoupling the backoff policy from any one provider's error grammar.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Class categorizes an error for retry purposes.
type Class int

const (
	// ClassTransient marks errors worth retrying with exponential backoff.
	ClassTransient Class = iota

	// ClassRateLimited marks rate-limit signals; the classification may carry
	// a server-suggested wait duration that overrides the backoff delay.
	ClassRateLimited

	// ClassFatal marks errors that will not succeed on retry.
	ClassFatal
)

// Classification is the result of classifying an error.
type Classification struct {
	Class Class

	// RetryAfter is the server-suggested wait before the next attempt.
	// Zero means no hint was present.
	RetryAfter time.Duration
}

// Classifier maps an error to a retry Classification.
type Classifier func(error) Classification

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff.
	Multiplier float64

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0).
	JitterFraction float64
}

// DefaultConfig returns a default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// FeedFetchConfig returns configuration for feed fetching.
// Aggressive retry for transient network issues; the per-source timeout
// bounds the total time spent.
func FeedFetchConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// SummarizerConfig returns the retry policy for summarization API calls:
// at most 3 attempts with exponential backoff starting at 5 seconds
// (5s, 10s, 20s), unless the provider supplies its own wait hint.
func SummarizerConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   5 * time.Second,
		MaxDelay:       2 * time.Minute,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
}

// PublishConfig returns the retry policy for workspace destination calls.
func PublishConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// WithBackoff executes fn with retry logic and exponential backoff.
// Errors are categorized through classify (DefaultClassifier when nil):
// fatal errors abort immediately, rate-limited errors wait for the
// server-suggested duration when one is present, and transient errors wait
// for the exponential backoff delay. Returns nil on success or the last
// error once attempts are exhausted.
func WithBackoff(ctx context.Context, cfg Config, classify Classifier, fn func() error) error {
	if classify == nil {
		classify = DefaultClassifier
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}

		c := classify(lastErr)
		if c.Class == ClassFatal {
			slog.Warn("non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", lastErr))
			return lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		// Server-suggested wait takes precedence over backoff.
		wait := delay
		if c.Class == ClassRateLimited && c.RetryAfter > 0 {
			wait = c.RetryAfter
		}

		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", wait),
			slog.Bool("rate_limited", c.Class == ClassRateLimited),
			slog.Any("error", lastErr))

		select {
		case <-time.After(addJitter(wait, cfg.JitterFraction)):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

// DefaultClassifier categorizes common network and HTTP errors.
// Context cancellation is fatal; timeouts, connection failures, 5xx, 408 and
// 429 are transient (429 as rate-limited, honoring RateLimitError hints).
func DefaultClassifier(err error) Classification {
	if err == nil {
		return Classification{Class: ClassFatal}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Classification{Class: ClassFatal}
	}

	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return Classification{Class: ClassRateLimited, RetryAfter: rlErr.RetryAfter}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Classification{Class: ClassTransient}
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return Classification{Class: ClassTransient}
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return Classification{Class: ClassRateLimited, RetryAfter: httpErr.RetryAfter}
		case httpErr.StatusCode >= 500 && httpErr.StatusCode < 600:
			return Classification{Class: ClassTransient}
		case httpErr.StatusCode == http.StatusRequestTimeout:
			return Classification{Class: ClassTransient}
		default:
			return Classification{Class: ClassFatal}
		}
	}

	// Unknown errors default to transient so flaky collaborators get a
	// second chance within the attempt budget.
	return Classification{Class: ClassTransient}
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string

	// RetryAfter carries the Retry-After header value for 429 responses.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// RateLimitError represents a rate-limit signal from an external API,
// optionally carrying the server-suggested wait duration.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// addJitter adds random jitter to a duration to prevent thundering herd.
func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- math/rand is fine for backoff jitter.
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
