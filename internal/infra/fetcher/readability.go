// Package fetcher extracts full article text from web pages for entries
// whose feed content is too thin to summarize.
package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"newsdigest/internal/resilience/circuitbreaker"

	readability "github.com/go-shiori/go-readability"
)

// Config controls full-content fetching behavior.
type Config struct {
	// Timeout bounds one content fetch request.
	Timeout time.Duration

	// MaxBodySize caps the response body in bytes.
	MaxBodySize int64

	// MaxRedirects caps redirect chains.
	MaxRedirects int
}

// DefaultConfig returns the default content fetch configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      15 * time.Second,
		MaxBodySize:  5 * 1024 * 1024,
		MaxRedirects: 5,
	}
}

// ReadabilityFetcher implements fetch.ContentFetcher with the Mozilla
// Readability algorithm via go-shiori/go-readability. Safe for concurrent use.
type ReadabilityFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	cfg            Config
}

// NewReadabilityFetcher creates a content fetcher with the given config.
func NewReadabilityFetcher(cfg Config) *ReadabilityFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultConfig().MaxRedirects
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("too many redirects: %d", len(via))
			}
			return nil
		},
	}

	return &ReadabilityFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.ContentFetchConfig()),
		cfg:            cfg,
	}
}

// FetchContent fetches the page at url and extracts the readable article
// text. Extraction failures return an error; callers keep the feed content.
func (f *ReadabilityFetcher) FetchContent(ctx context.Context, urlStr string) (string, error) {
	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, urlStr)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "NewsDigestBot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	limited := io.LimitReader(resp.Body, f.cfg.MaxBodySize+1)
	htmlBytes, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if int64(len(htmlBytes)) > f.cfg.MaxBodySize {
		return "", fmt.Errorf("response exceeds %d byte limit", f.cfg.MaxBodySize)
	}

	// Redirects may have moved the page; Readability resolves relative URLs
	// against the final location.
	pageURL, _ := url.Parse(urlStr)
	if resp.Request != nil && resp.Request.URL != nil {
		pageURL = resp.Request.URL
	}

	article, err := readability.FromReader(bytes.NewReader(htmlBytes), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability extraction: %w", err)
	}

	if article.TextContent == "" {
		if article.Content == "" {
			return "", fmt.Errorf("no readable content found at %s", urlStr)
		}
		slog.Debug("using raw content, text extraction empty",
			slog.String("url", urlStr))
		return article.Content, nil
	}

	return article.TextContent, nil
}
