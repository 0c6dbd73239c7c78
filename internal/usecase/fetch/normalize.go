package fetch

import (
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/net/html"

	"newsdigest/internal/domain/entity"
)

// Normalize converts a raw feed entry into a canonical Article. Pure function:
// the caller supplies the fetch instant used as the publication-date fallback.
// Returns nil when the entry lacks a usable link (logged, not raised).
func Normalize(entry RawEntry, src *entity.Source, fetchedAt time.Time) *entity.Article {
	link := strings.TrimSpace(entry.Link)
	if link == "" {
		slog.Debug("dropping entry without link",
			slog.String("source", src.Name),
			slog.String("title", entry.Title))
		return nil
	}

	content := entry.Content
	if content == "" {
		content = entry.Description
	}

	art := entity.NewArticle(
		strings.TrimSpace(entry.Title),
		link,
		StripHTML(content),
		parsePublished(entry.Published, src.Name, fetchedAt),
		src.Name,
	)
	art.ImageURL = entry.ImageURL
	return art
}

// parsePublished parses the raw date string with a permissive grammar.
// Unparseable or missing dates fall back to the fetch instant. The fallback is
// deliberately lossy: such an article is indistinguishable from one published
// at fetch time and may be misordered.
func parsePublished(raw, sourceName string, fetchedAt time.Time) time.Time {
	if strings.TrimSpace(raw) == "" {
		return fetchedAt.UTC()
	}

	parsed, err := dateparse.ParseAny(raw)
	if err != nil {
		slog.Debug("unparseable published date, using fetch time",
			slog.String("source", sourceName),
			slog.String("raw_date", raw))
		return fetchedAt.UTC()
	}
	return parsed.UTC()
}

// StripHTML extracts plain text from an HTML fragment, preserving word
// boundaries between elements and collapsing whitespace runs.
func StripHTML(fragment string) string {
	if fragment == "" {
		return ""
	}

	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		// Malformed markup: fall back to collapsing the raw string.
		return collapseWhitespace(fragment)
	}

	var b strings.Builder
	collectText(root, &b)
	return collapseWhitespace(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	// Script and style bodies are not article text.
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
