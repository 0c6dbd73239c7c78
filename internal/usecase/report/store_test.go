package report_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/usecase/report"
)

func TestStore_SaveAndLoad(t *testing.T) {
	store, err := report.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	now := time.Date(2026, 8, 26, 9, 30, 0, 0, time.UTC)
	articles := []*entity.Article{
		{
			ID:          entity.Fingerprint("https://example.com/a", "Title A"),
			Title:       "Title A",
			Link:        "https://example.com/a",
			Summary:     "Summary A",
			PublishedAt: now.Add(-2 * time.Hour),
			SourceName:  "alpha",
		},
	}
	r := report.Build(now, articles)

	if r.Date != "2026-08-26" {
		t.Errorf("Build() date = %q, want 2026-08-26", r.Date)
	}
	if r.TotalArticles != 1 {
		t.Errorf("Build() total = %d, want 1", r.TotalArticles)
	}

	if err := store.Save(r); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load("2026-08-26")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(r, loaded); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store, err := report.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	_, err = store.Load("2026-01-01")
	if err == nil {
		t.Fatal("Load() error = nil, want not-exist error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

func TestStore_SaveReplacesPrevious(t *testing.T) {
	store, err := report.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	now := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	first := report.Build(now, nil)
	if err := store.Save(first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := report.Build(now, []*entity.Article{
		{ID: "x", Title: "T", Link: "https://example.com/x"},
	})
	if err := store.Save(second); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	loaded, err := store.Load("2026-08-26")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.TotalArticles != 1 {
		t.Errorf("loaded total = %d, want latest version", loaded.TotalArticles)
	}
}
