package entity

import (
	"strings"
	"testing"
)

func validProxySource() Source {
	return Source{
		Name:    "techcrunch-proxy",
		FeedURL: "https://proxy.example.com/techcrunch/news",
		Kind:    KindProxy,
		FieldMap: &FieldMap{
			Item:    "item",
			Title:   "title",
			Link:    "link",
			Content: "description",
			Date:    "pubDate",
		},
	}
}

func TestSource_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Source)
		wantErr string
	}{
		{"valid proxy source", func(s *Source) {}, ""},
		{"missing name", func(s *Source) { s.Name = "" }, "name is required"},
		{"missing feed url", func(s *Source) { s.FeedURL = "" }, "feed_url is required"},
		{"unknown kind", func(s *Source) { s.Kind = "scrape" }, "invalid kind"},
		{"proxy without field map", func(s *Source) { s.FieldMap = nil }, "field_map is required"},
		{"proxy with partial field map", func(s *Source) { s.FieldMap.Link = "" }, "field_map needs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := validProxySource()
			tt.mutate(&src)

			err := src.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSource_Validate_EmptyKindDefaultsToRSS(t *testing.T) {
	src := Source{Name: "mit", FeedURL: "https://example.com/feed"}
	if err := src.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if src.Kind != KindRSS {
		t.Errorf("empty kind must default to %q, got %q", KindRSS, src.Kind)
	}
}
