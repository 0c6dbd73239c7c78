package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/observability/metrics"
)

// Config holds fetch behavior settings.
type Config struct {
	// SourceTimeout bounds the total time spent on one source, including
	// retries. A timed-out source contributes an error, not a crash.
	SourceTimeout time.Duration

	// MaxPerSource caps the articles kept per source after filtering.
	// Applied when a source does not set its own cap.
	MaxPerSource int

	// ContentThreshold is the minimum content length (bytes) below which the
	// full article page is fetched when a ContentFetcher is configured.
	ContentThreshold int
}

// DefaultConfig returns the default fetch configuration.
func DefaultConfig() Config {
	return Config{
		SourceTimeout:    30 * time.Second,
		MaxPerSource:     50,
		ContentThreshold: 600,
	}
}

// SourceError reports a failed source fetch. Collected into the batch result;
// never raised to the caller.
type SourceError struct {
	SourceName string
	Err        error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.SourceName, e.Err)
}

// Unwrap exposes the underlying fetch error.
func (e SourceError) Unwrap() error { return e.Err }

// Service fans out feed fetches across sources, normalizes and filters the
// entries, and joins everything into a single deduplicated batch.
type Service struct {
	fetchers       map[string]Fetcher // by source kind
	contentFetcher ContentFetcher     // optional, nil disables enhancement
	cfg            Config
	now            func() time.Time
}

// NewService creates a fetch Service. fetchers maps source kinds to their
// Fetcher implementations; contentFetcher may be nil.
func NewService(fetchers map[string]Fetcher, contentFetcher ContentFetcher, cfg Config) *Service {
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = DefaultConfig().SourceTimeout
	}
	if cfg.MaxPerSource <= 0 {
		cfg.MaxPerSource = DefaultConfig().MaxPerSource
	}
	return &Service{
		fetchers:       fetchers,
		contentFetcher: contentFetcher,
		cfg:            cfg,
		now:            time.Now,
	}
}

// sourceResult is the tagged outcome of one source's fetch task. Exactly one
// of articles or err is meaningful; no error crosses the fan-out boundary.
type sourceResult struct {
	articles []*entity.Article
	err      error
}

// FetchAll fetches every source concurrently and joins the results into a
// deduplicated, publication-date-ordered batch plus a per-source error report.
// The join waits for all sources, success or failure; one source's failure
// never aborts the others. Output order is deterministic: results are joined
// in configured source order, then deduplicated and sorted.
func (s *Service) FetchAll(ctx context.Context, sources []entity.Source) ([]*entity.Article, []SourceError) {
	results := make([]sourceResult, len(sources))

	var wg sync.WaitGroup
	for i := range sources {
		wg.Add(1)
		go func(idx int, src entity.Source) {
			defer wg.Done()
			results[idx] = s.fetchSource(ctx, &src)
		}(i, sources[i])
	}
	wg.Wait()

	var articles []*entity.Article
	var errs []SourceError
	for i, res := range results {
		if res.err != nil {
			errs = append(errs, SourceError{SourceName: sources[i].Name, Err: res.err})
			continue
		}
		articles = append(articles, res.articles...)
	}

	return Dedupe(articles), errs
}

// fetchSource runs one source's fetch task: fetch, filter, normalize, cap,
// and optionally enhance content. All failures are captured in the result.
func (s *Service) fetchSource(ctx context.Context, src *entity.Source) sourceResult {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SourceTimeout)
	defer cancel()

	fetcher, ok := s.fetchers[src.Kind]
	if !ok {
		metrics.RecordSourceFetch(src.Name, false)
		return sourceResult{err: fmt.Errorf("no fetcher for kind %q", src.Kind)}
	}

	entries, err := fetcher.Fetch(ctx, src)
	if err != nil {
		slog.Warn("failed to fetch feed",
			slog.String("source", src.Name),
			slog.String("feed_url", src.FeedURL),
			slog.Any("error", err))
		metrics.RecordSourceFetch(src.Name, false)
		return sourceResult{err: err}
	}
	metrics.RecordSourceFetch(src.Name, true)
	metrics.RecordFeedEntries(src.Name, len(entries))

	limit := src.MaxArticles
	if limit <= 0 {
		limit = s.cfg.MaxPerSource
	}

	fetchedAt := s.now()
	articles := make([]*entity.Article, 0, len(entries))
	for _, entry := range entries {
		if !Relevant(entry, src.Keywords) {
			continue
		}
		art := Normalize(entry, src, fetchedAt)
		if art == nil {
			continue
		}
		articles = append(articles, art)
		if len(articles) >= limit {
			break
		}
	}
	metrics.RecordArticlesKept(src.Name, len(articles))

	if s.contentFetcher != nil {
		for _, art := range articles {
			art.Content = s.enhanceContent(ctx, art)
		}
	}

	slog.Info("source fetch completed",
		slog.String("source", src.Name),
		slog.Int("entries", len(entries)),
		slog.Int("kept", len(articles)))

	return sourceResult{articles: articles}
}

// enhanceContent fetches the full article page when the feed content is below
// the configured threshold. Never fails: any error falls back to the feed
// content, and fetched text is used only when it is longer.
func (s *Service) enhanceContent(ctx context.Context, art *entity.Article) string {
	if len(art.Content) >= s.cfg.ContentThreshold {
		return art.Content
	}

	full, err := s.contentFetcher.FetchContent(ctx, art.Link)
	if err != nil {
		slog.Debug("content fetch failed, keeping feed content",
			slog.String("link", art.Link),
			slog.Any("error", err))
		metrics.RecordContentFetch(false)
		return art.Content
	}
	metrics.RecordContentFetch(true)

	if len(full) > len(art.Content) {
		return full
	}
	return art.Content
}
