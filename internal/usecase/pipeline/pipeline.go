// Package pipeline orchestrates one fetch-summarize-publish cycle: concurrent
// source fetching, bounded-parallelism summarization, report persistence, and
// idempotent publishing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/observability/tracing"
	"newsdigest/internal/usecase/fetch"
	"newsdigest/internal/usecase/publish"
	"newsdigest/internal/usecase/report"
)

// Config holds pipeline orchestration settings.
type Config struct {
	// SummarizerParallelism bounds concurrent in-flight summarization
	// requests. Backoff sleeps inside one request do not block the others.
	SummarizerParallelism int

	// CycleTimeout bounds one whole cycle. Zero disables the bound.
	CycleTimeout time.Duration

	// RetentionDays archives destination pages older than this many days
	// after a successful publish. Zero disables retention cleanup.
	RetentionDays int
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		SummarizerParallelism: 5,
		CycleTimeout:          10 * time.Minute,
	}
}

// Summarizer fills one article's summary in place. A returned error means the
// article proceeds without a summary; it never aborts the batch.
type Summarizer interface {
	SummarizeArticle(ctx context.Context, art *entity.Article) error
}

// Publisher delivers a report to the destination.
type Publisher interface {
	Publish(ctx context.Context, r *entity.Report) (*publish.Result, error)
}

// Archiver optionally archives destination pages older than a cutoff.
type Archiver interface {
	ArchivePagesBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// CycleStats summarizes one cycle's outcome.
type CycleStats struct {
	Sources         int
	FetchErrors     int
	Articles        int
	SummarizeErrors int64
	Published       int
	PageURL         string
	Duration        time.Duration
}

// Pipeline runs the full cycle. One instance runs at most one cycle at a
// time; the scheduler enforces non-overlap.
type Pipeline struct {
	fetcher     *fetch.Service
	summarizer  Summarizer
	reportStore *report.Store
	publisher   Publisher
	archiver    Archiver // nil disables retention cleanup
	sources     []entity.Source
	cfg         Config
	now         func() time.Time
}

// New creates a Pipeline. archiver may be nil.
func New(
	fetcher *fetch.Service,
	summarizer Summarizer,
	reportStore *report.Store,
	publisher Publisher,
	archiver Archiver,
	sources []entity.Source,
	cfg Config,
) *Pipeline {
	if cfg.SummarizerParallelism <= 0 {
		cfg.SummarizerParallelism = DefaultConfig().SummarizerParallelism
	}
	return &Pipeline{
		fetcher:     fetcher,
		summarizer:  summarizer,
		reportStore: reportStore,
		publisher:   publisher,
		archiver:    archiver,
		sources:     sources,
		cfg:         cfg,
		now:         time.Now,
	}
}

// RunCycle executes one cycle. Fetch and summarization failures degrade the
// output; only report persistence and publish failures fail the cycle, and
// the next scheduled cycle retries them via the ledger.
func (p *Pipeline) RunCycle(ctx context.Context) (*CycleStats, error) {
	if p.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CycleTimeout)
		defer cancel()
	}

	ctx, span := tracing.StartSpan(ctx, "pipeline.RunCycle")
	defer span.End()

	start := p.now()
	stats := &CycleStats{Sources: len(p.sources)}

	articles, fetchErrs := p.fetcher.FetchAll(ctx, p.sources)
	stats.FetchErrors = len(fetchErrs)
	stats.Articles = len(articles)
	for _, srcErr := range fetchErrs {
		slog.Warn("source fetch failed",
			slog.String("source", srcErr.SourceName),
			slog.Any("error", srcErr.Err))
	}

	if err := p.summarizeAll(ctx, articles, stats); err != nil {
		// Only context cancellation escapes the pool.
		stats.Duration = p.now().Sub(start)
		return stats, fmt.Errorf("summarization canceled: %w", err)
	}

	r := report.Build(p.now(), articles)
	if err := p.reportStore.Save(r); err != nil {
		stats.Duration = p.now().Sub(start)
		return stats, fmt.Errorf("save report: %w", err)
	}

	res, err := p.publisher.Publish(ctx, r)
	if err != nil {
		stats.Duration = p.now().Sub(start)
		return stats, fmt.Errorf("publish report: %w", err)
	}
	if res.Page != nil {
		stats.PageURL = res.Page.URL
	}
	stats.Published = res.Published

	p.cleanupOldPages(ctx)

	stats.Duration = p.now().Sub(start)
	slog.Info("cycle completed",
		slog.Int("sources", stats.Sources),
		slog.Int("fetch_errors", stats.FetchErrors),
		slog.Int("articles", stats.Articles),
		slog.Int64("summarize_errors", stats.SummarizeErrors),
		slog.Int("published", stats.Published),
		slog.String("page_url", stats.PageURL),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// summarizeAll summarizes articles with bounded parallelism. Individual
// failures leave the article without a summary and are counted; context
// cancellation aborts the pool.
func (p *Pipeline) summarizeAll(ctx context.Context, articles []*entity.Article, stats *CycleStats) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline.summarizeAll")
	defer span.End()

	sem := make(chan struct{}, p.cfg.SummarizerParallelism)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, article := range articles {
		art := article
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-egCtx.Done():
				return egCtx.Err()
			}
			defer func() { <-sem }()

			if err := p.summarizer.SummarizeArticle(egCtx, art); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				atomic.AddInt64(&stats.SummarizeErrors, 1)
			}
			return nil
		})
	}

	return eg.Wait()
}

// cleanupOldPages archives destination pages past the retention window.
// Best effort after a successful publish.
func (p *Pipeline) cleanupOldPages(ctx context.Context) {
	if p.archiver == nil || p.cfg.RetentionDays <= 0 {
		return
	}
	cutoff := p.now().UTC().AddDate(0, 0, -p.cfg.RetentionDays)
	count, err := p.archiver.ArchivePagesBefore(ctx, cutoff)
	if err != nil {
		slog.Warn("retention cleanup failed", slog.Any("error", err))
		return
	}
	if count > 0 {
		slog.Info("retention cleanup archived pages", slog.Int("count", count))
	}
}
