// Package fetch provides the feed retrieval use case: concurrent multi-source
// fetching with per-source isolation, relevance filtering, normalization into
// canonical articles, and cross-source deduplication.
package fetch

import (
	"context"

	"newsdigest/internal/domain/entity"
)

// RawEntry is the source-dialect-specific record returned by feed parsing.
// Fields may be absent; the normalizer decides what is usable. Transient:
// consumed immediately, never stored.
type RawEntry struct {
	Title       string
	Link        string
	Description string
	Content     string
	Published   string // raw published-date string, parsed permissively
	Tags        []string
	ImageURL    string
}

// Fetcher retrieves and parses one source's feed into raw entries.
type Fetcher interface {
	Fetch(ctx context.Context, src *entity.Source) ([]RawEntry, error)
}

// ContentFetcher fetches full article content from a URL. Used to enhance
// entries whose feed content is too short to summarize well.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}
