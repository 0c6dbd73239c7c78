package summarizer

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"newsdigest/internal/resilience/retry"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
)

// waitHintPattern matches provider "try again in 65s" style messages,
// including fractional values like "1.5s" and "250ms".
var waitHintPattern = regexp.MustCompile(`(?i)try again in\s+(\d+(?:\.\d+)?)\s*(ms|s|m)\b`)

// Classify maps provider errors onto retry classes. Rate limits carry the
// server-suggested wait when one can be extracted from headers or the error
// message; auth and bad-request errors are fatal; the rest falls through to
// the default network classifier.
func Classify(err error) retry.Classification {
	if err == nil {
		return retry.Classification{Class: retry.ClassFatal}
	}

	var anthErr *anthropic.Error
	if errors.As(err, &anthErr) {
		return classifyStatus(anthErr.StatusCode, retryAfterHeader(anthErr.Response), anthErr.Error())
	}

	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		return classifyStatus(oaiErr.HTTPStatusCode, 0, oaiErr.Message)
	}

	return retry.DefaultClassifier(err)
}

// classifyStatus maps an HTTP status from a provider API onto a retry class.
func classifyStatus(status int, retryAfter time.Duration, message string) retry.Classification {
	switch {
	case status == http.StatusTooManyRequests:
		if retryAfter <= 0 {
			retryAfter = parseWaitHint(message)
		}
		return retry.Classification{Class: retry.ClassRateLimited, RetryAfter: retryAfter}
	case status >= 500 && status < 600:
		return retry.Classification{Class: retry.ClassTransient}
	case status == http.StatusRequestTimeout:
		return retry.Classification{Class: retry.ClassTransient}
	case status >= 400 && status < 500:
		return retry.Classification{Class: retry.ClassFatal}
	default:
		return retry.Classification{Class: retry.ClassTransient}
	}
}

// retryAfterHeader reads the Retry-After header (in seconds) from a provider
// response. Returns 0 when absent or unparseable.
func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// parseWaitHint extracts a wait duration from a provider error message such
// as "Rate limit reached ... Please try again in 65s". Returns 0 when no
// hint is present.
func parseWaitHint(message string) time.Duration {
	m := waitHintPattern.FindStringSubmatch(message)
	if m == nil {
		return 0
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value <= 0 {
		return 0
	}
	switch m[2] {
	case "ms":
		return time.Duration(value * float64(time.Millisecond))
	case "m":
		return time.Duration(value * float64(time.Minute))
	default:
		return time.Duration(value * float64(time.Second))
	}
}
