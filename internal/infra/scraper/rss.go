// Package scraper provides feed fetcher implementations for the supported
// source kinds. Fetchers wrap the network calls with circuit breaker and
// retry logic.
package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/resilience/circuitbreaker"
	"newsdigest/internal/resilience/retry"
	"newsdigest/internal/usecase/fetch"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

const userAgent = "NewsDigestBot/1.0"

// RSSFetcher implements fetch.Fetcher for RSS/Atom feeds using gofeed.
type RSSFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewRSSFetcher creates an RSSFetcher with the given HTTP client.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return &RSSFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

// Fetch retrieves and parses the source's RSS/Atom feed. Failures are retried
// with backoff; a tripped circuit breaker rejects the attempt immediately.
func (f *RSSFetcher) Fetch(ctx context.Context, src *entity.Source) ([]fetch.RawEntry, error) {
	var entries []fetch.RawEntry

	retryErr := retry.WithBackoff(ctx, f.retryConfig, retry.DefaultClassifier, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, src.FeedURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("source", src.Name),
					slog.String("url", src.FeedURL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}

		entries = cbResult.([]fetch.RawEntry)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return entries, nil
}

// doFetch performs the actual feed fetch without retry or circuit breaker.
func (f *RSSFetcher) doFetch(ctx context.Context, feedURL string) ([]fetch.RawEntry, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]fetch.RawEntry, 0, len(feed.Items))
	for _, it := range feed.Items {
		entry := fetch.RawEntry{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
			Content:     it.Content,
			Published:   it.Published,
			Tags:        it.Categories,
		}
		if it.Image != nil {
			entry.ImageURL = it.Image.URL
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
