// Package entity defines the core domain entities and validation logic for the
// pipeline: canonical articles, configured feed sources, and the day-scoped
// report handed to the publisher.
package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Article is the canonical, deduplicated unit of content flowing through the
// pipeline. It is created by the normalizer, enriched in place by the
// summarizer, and read-only thereafter.
type Article struct {
	// ID is a deterministic fingerprint of (Link, Title). Identical across
	// runs for the same source content; the basis for deduplication and
	// publish idempotence.
	ID string `json:"id"`

	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Content     string    `json:"content,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	SourceName  string    `json:"source_name"`
	ImageURL    string    `json:"image_url,omitempty"`

	// Summary is filled by the summarizer; empty when summarization failed.
	Summary string `json:"summary,omitempty"`
}

// Fingerprint computes the stable article identifier from the canonical link
// and title. The title is case-folded and whitespace-collapsed first, so the
// same story republished with different title casing maps to the same id.
func Fingerprint(link, title string) string {
	canonical := strings.TrimSpace(link) + "\x00" + strings.Join(strings.Fields(strings.ToLower(title)), " ")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// NewArticle builds an Article with its fingerprint id set.
func NewArticle(title, link, content string, publishedAt time.Time, sourceName string) *Article {
	return &Article{
		ID:          Fingerprint(link, title),
		Title:       title,
		Link:        link,
		Content:     content,
		PublishedAt: publishedAt.UTC(),
		SourceName:  sourceName,
	}
}
