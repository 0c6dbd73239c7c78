package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/resilience/circuitbreaker"
	"newsdigest/internal/resilience/retry"
	"newsdigest/internal/usecase/fetch"

	"github.com/PuerkitoBio/goquery"
	"github.com/sony/gobreaker"
)

const maxBodySize = 10 * 1024 * 1024 // 10MB

// ProxyFetcher implements fetch.Fetcher for sites without a feed, scraping a
// listing page with CSS selectors from the source's field map.
type ProxyFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewProxyFetcher creates a ProxyFetcher with the given HTTP client.
func NewProxyFetcher(client *http.Client) *ProxyFetcher {
	return &ProxyFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

// Fetch scrapes the source's listing page and extracts entries using the
// source's selector field map. Sources without a field map are rejected.
func (p *ProxyFetcher) Fetch(ctx context.Context, src *entity.Source) ([]fetch.RawEntry, error) {
	if src.FieldMap == nil {
		return nil, fmt.Errorf("source %s: proxy kind requires a field map", src.Name)
	}

	var entries []fetch.RawEntry

	retryErr := retry.WithBackoff(ctx, p.retryConfig, retry.DefaultClassifier, func() error {
		cbResult, err := p.circuitBreaker.Execute(func() (interface{}, error) {
			return p.doFetch(ctx, src)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("proxy fetch circuit breaker open, request rejected",
					slog.String("source", src.Name),
					slog.String("url", src.FeedURL),
					slog.String("state", p.circuitBreaker.State().String()))
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

// doFetch performs the actual scrape without retry or circuit breaker.
func (p *ProxyFetcher) doFetch(ctx context.Context, src *entity.Source) ([]fetch.RawEntry, error) {
	doc, err := p.fetchHTML(ctx, src.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing page: %w", err)
	}

	entries := p.extractEntries(doc, src)
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries found with selector %q", src.FieldMap.Item)
	}

	return entries, nil
}

// fetchHTML fetches and parses HTML from the given URL.
func (p *ProxyFetcher) fetchHTML(ctx context.Context, urlStr string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status: %s", resp.Status),
		}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	return doc, nil
}

// extractEntries extracts raw entries from the document using the source's
// selector field map. Items missing a title or link are skipped.
func (p *ProxyFetcher) extractEntries(doc *goquery.Document, src *entity.Source) []fetch.RawEntry {
	fm := src.FieldMap
	var entries []fetch.RawEntry

	doc.Find(fm.Item).Each(func(i int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(fm.Title).Text())
		if title == "" {
			slog.Debug("skipping item with empty title",
				slog.String("source", src.Name), slog.Int("index", i))
			return
		}

		link := ""
		if href, exists := sel.Find(fm.Link).Attr("href"); exists {
			link = strings.TrimSpace(href)
		}
		if link == "" {
			slog.Debug("skipping item with empty link",
				slog.String("source", src.Name), slog.Int("index", i),
				slog.String("title", title))
			return
		}
		link = absoluteURL(link, src.FeedURL)

		entry := fetch.RawEntry{Title: title, Link: link}
		if fm.Content != "" {
			entry.Description = strings.TrimSpace(sel.Find(fm.Content).Text())
		}
		if fm.Date != "" {
			entry.Published = strings.TrimSpace(sel.Find(fm.Date).Text())
		}

		entries = append(entries, entry)
	})

	return entries
}

// absoluteURL resolves href against the listing page URL when href is
// relative. Unparseable inputs are returned as-is.
func absoluteURL(href, base string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
