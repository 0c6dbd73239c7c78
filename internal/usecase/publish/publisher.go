// Package publish delivers a report to the publishing destination exactly
// once per article, using a durable ledger of published article ids.
package publish

import (
	"context"
	"fmt"
	"log/slog"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/observability/metrics"
)

// PageRef identifies a destination page.
type PageRef struct {
	ID  string
	URL string
}

// Ledger is the durable set of published article ids. An id present in the
// ledger is never re-submitted to the destination.
type Ledger interface {
	Contains(ctx context.Context, id string) (bool, error)
	FilterNew(ctx context.Context, ids []string) ([]string, error)
	Record(ctx context.Context, ids []string) error
}

// Destination is the remote publishing collaborator: period-scoped page
// lookup, page creation, content append, and property updates.
type Destination interface {
	FindPage(ctx context.Context, periodKey string) (*PageRef, error)
	CreatePage(ctx context.Context, report *entity.Report) (*PageRef, error)
	AppendArticles(ctx context.Context, pageID string, articles []*entity.Article) error
	UpdateArticleIDs(ctx context.Context, pageID string, ids []string) error
}

// Result reports one publish call's outcome.
type Result struct {
	// Page references the period's destination page. Nil when nothing was
	// ever published for the period.
	Page *PageRef

	// Published is the number of articles appended by this call.
	Published int
}

// Publisher appends a report's unpublished articles to the period's page.
type Publisher struct {
	ledger Ledger
	dest   Destination
}

// NewPublisher creates a Publisher.
func NewPublisher(ledger Ledger, dest Destination) *Publisher {
	return &Publisher{ledger: ledger, dest: dest}
}

// Publish delivers the report's articles that are not yet in the ledger.
// When every article has been published before, Publish is an idempotent
// no-op returning the existing page reference (nil when none exists).
//
// The ledger is recorded only after a successful append. A crash between
// append and record means those articles are "maybe published": the next
// cycle may attempt them again.
func (p *Publisher) Publish(ctx context.Context, report *entity.Report) (*Result, error) {
	ids := make([]string, 0, len(report.Articles))
	forID := make(map[string]*entity.Article, len(report.Articles))
	for _, art := range report.Articles {
		ids = append(ids, art.ID)
		forID[art.ID] = art
	}

	freshIDs, err := p.ledger.FilterNew(ctx, ids)
	if err != nil {
		metrics.RecordPublish(false, 0)
		return nil, fmt.Errorf("filter published articles: %w", err)
	}

	if len(freshIDs) == 0 {
		slog.Info("no new articles to publish", slog.String("period", report.Date))
		page, err := p.dest.FindPage(ctx, report.Date)
		if err != nil {
			metrics.RecordPublish(false, 0)
			return nil, fmt.Errorf("find report page: %w", err)
		}
		metrics.RecordPublish(true, 0)
		return &Result{Page: page}, nil
	}

	// Preserve the report's article order.
	fresh := make([]*entity.Article, 0, len(freshIDs))
	for _, id := range freshIDs {
		fresh = append(fresh, forID[id])
	}

	page, err := p.dest.FindPage(ctx, report.Date)
	if err != nil {
		metrics.RecordPublish(false, 0)
		return nil, fmt.Errorf("find report page: %w", err)
	}
	if page == nil {
		page, err = p.dest.CreatePage(ctx, report)
		if err != nil {
			metrics.RecordPublish(false, 0)
			return nil, fmt.Errorf("create report page: %w", err)
		}
	}

	if err := p.dest.AppendArticles(ctx, page.ID, fresh); err != nil {
		metrics.RecordPublish(false, 0)
		return nil, fmt.Errorf("append articles: %w", err)
	}

	// Property update is diagnostics only; an append that succeeded must
	// still reach the ledger.
	if err := p.dest.UpdateArticleIDs(ctx, page.ID, freshIDs); err != nil {
		slog.Warn("failed to update page article ids",
			slog.String("page_id", page.ID),
			slog.Any("error", err))
	}

	if err := p.ledger.Record(ctx, freshIDs); err != nil {
		metrics.RecordPublish(false, 0)
		return nil, fmt.Errorf("record published ids (articles maybe published): %w", err)
	}

	metrics.RecordPublish(true, len(fresh))
	slog.Info("published articles",
		slog.String("period", report.Date),
		slog.String("page_id", page.ID),
		slog.Int("count", len(fresh)))

	return &Result{Page: page, Published: len(fresh)}, nil
}
