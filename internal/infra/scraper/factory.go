package scraper

import (
	"net/http"
	"time"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/usecase/fetch"
)

// NewFetchers builds the fetcher map for all supported source kinds. The
// shared HTTP client defaults to a 30 second timeout when nil.
func NewFetchers(client *http.Client) map[string]fetch.Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return map[string]fetch.Fetcher{
		entity.KindRSS:   NewRSSFetcher(client),
		entity.KindProxy: NewProxyFetcher(client),
	}
}
