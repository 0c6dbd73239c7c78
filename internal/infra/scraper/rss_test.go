package scraper_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/infra/scraper"
)

func rssSource(url string) *entity.Source {
	return &entity.Source{Name: "test", FeedURL: url, Kind: entity.KindRSS}
}

func TestRSSFetcher_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <item>
      <title>Article 1</title>
      <link>https://example.com/article1</link>
      <description>Description 1</description>
      <pubDate>Mon, 24 Aug 2026 00:00:00 +0000</pubDate>
      <category>ai</category>
    </item>
    <item>
      <title>Article 2</title>
      <link>https://example.com/article2</link>
      <description>Description 2</description>
      <pubDate>Tue, 25 Aug 2026 00:00:00 +0000</pubDate>
    </item>
  </channel>
</rss>`
		w.Header().Set("Content-Type", "application/rss+xml")
		if _, err := w.Write([]byte(rss)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	fetcher := scraper.NewRSSFetcher(client)

	entries, err := fetcher.Fetch(context.Background(), rssSource(server.URL))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("entries length = %d, want 2", len(entries))
	}

	if entries[0].Title != "Article 1" {
		t.Errorf("entries[0].Title = %q, want %q", entries[0].Title, "Article 1")
	}
	if entries[0].Link != "https://example.com/article1" {
		t.Errorf("entries[0].Link = %q, want %q", entries[0].Link, "https://example.com/article1")
	}
	if entries[0].Description != "Description 1" {
		t.Errorf("entries[0].Description = %q, want %q", entries[0].Description, "Description 1")
	}
	if entries[0].Published == "" {
		t.Error("entries[0].Published is empty, want raw pubDate string")
	}
	if len(entries[0].Tags) != 1 || entries[0].Tags[0] != "ai" {
		t.Errorf("entries[0].Tags = %v, want [ai]", entries[0].Tags)
	}
}

func TestRSSFetcher_Fetch_Atom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atom := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2026-08-25T00:00:00Z</updated>
  <entry>
    <title>Atom Article 1</title>
    <link href="https://example.com/atom1"/>
    <summary>Atom summary</summary>
    <updated>2026-08-25T00:00:00Z</updated>
  </entry>
</feed>`
		w.Header().Set("Content-Type", "application/atom+xml")
		if _, err := w.Write([]byte(atom)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	fetcher := scraper.NewRSSFetcher(client)

	entries, err := fetcher.Fetch(context.Background(), rssSource(server.URL))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}
	if entries[0].Title != "Atom Article 1" {
		t.Errorf("entries[0].Title = %q, want %q", entries[0].Title, "Atom Article 1")
	}
}

func TestRSSFetcher_Fetch_InvalidFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("not xml at all")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	fetcher := scraper.NewRSSFetcher(client)

	if _, err := fetcher.Fetch(context.Background(), rssSource(server.URL)); err == nil {
		t.Error("Fetch() error = nil, want parse error")
	}
}

func TestRSSFetcher_Fetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	fetcher := scraper.NewRSSFetcher(client)

	if _, err := fetcher.Fetch(context.Background(), rssSource(server.URL)); err == nil {
		t.Fatal("Fetch() error = nil, want HTTP error")
	}
}

func TestRSSFetcher_Fetch_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	fetcher := scraper.NewRSSFetcher(client)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := fetcher.Fetch(ctx, rssSource(server.URL)); err == nil {
		t.Error("Fetch() error = nil, want context error")
	}
}
