package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Feed dialects the fetcher understands. Sources outside this closed set are
// rejected at configuration time.
const (
	KindRSS   = "rss"   // generic syndication (RSS/Atom/JSON feed)
	KindProxy = "proxy" // proxy-aggregator dialect with configurable field selectors
)

// Source is a configured feed origin with its own dialect and relevance
// keywords. Owned by configuration; read-only to the pipeline.
type Source struct {
	Name     string    `yaml:"name"`
	FeedURL  string    `yaml:"feed_url"`
	Kind     string    `yaml:"kind"`
	Keywords []string  `yaml:"keywords"`
	FieldMap *FieldMap `yaml:"field_map,omitempty"`

	// MaxArticles caps the number of entries kept per fetch. Zero means the
	// configured default applies.
	MaxArticles int `yaml:"max_articles,omitempty"`
}

// FieldMap holds element selectors for the proxy-aggregator dialect, mapping
// non-standard feed documents onto title/link/content/date fields.
type FieldMap struct {
	Item    string `yaml:"item"`
	Title   string `yaml:"title"`
	Link    string `yaml:"link"`
	Content string `yaml:"content"`
	Date    string `yaml:"date"`
}

// Validate checks the Source fields. An empty kind defaults to RSS.
func (s *Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("source name is required")
	}
	if strings.TrimSpace(s.FeedURL) == "" {
		return fmt.Errorf("source %q: feed_url is required", s.Name)
	}

	if s.Kind == "" {
		s.Kind = KindRSS
	}
	switch s.Kind {
	case KindRSS:
	case KindProxy:
		if s.FieldMap == nil {
			return fmt.Errorf("source %q: field_map is required for proxy sources", s.Name)
		}
		if s.FieldMap.Item == "" || s.FieldMap.Title == "" || s.FieldMap.Link == "" {
			return fmt.Errorf("source %q: field_map needs item, title and link selectors", s.Name)
		}
	default:
		return fmt.Errorf("source %q: invalid kind %q (must be %s or %s)", s.Name, s.Kind, KindRSS, KindProxy)
	}

	return nil
}
