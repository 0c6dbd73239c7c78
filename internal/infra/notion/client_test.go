package notion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"newsdigest/internal/domain/entity"
)

func testConfig(baseURL string) Config {
	cfg := Config{
		APIKey:        "secret-token",
		DatabaseID:    "db-1",
		Category:      "AI Daily Report",
		CoverImageURL: "https://img.example.com/cover.png",
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func testReport() *entity.Report {
	art := &entity.Article{
		ID:          entity.Fingerprint("https://example.com/a", "Title A"),
		Title:       "Title A",
		Link:        "https://example.com/a",
		Summary:     "Summary A",
		ImageURL:    "https://img.example.com/a.png",
		PublishedAt: time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC),
	}
	return entity.NewReport(time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC), []*entity.Article{art})
}

func TestClient_FindPage(t *testing.T) {
	var gotFilter map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/databases/db-1/query" {
			t.Errorf("path = %s, want /databases/db-1/query", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Notion-Version"); got == "" {
			t.Error("Notion-Version header missing")
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotFilter)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]string{
				{"id": "page-9", "url": "https://notion.example.com/page-9"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	page, err := client.FindPage(context.Background(), "2026-08-26")
	if err != nil {
		t.Fatalf("FindPage() error = %v", err)
	}
	if page == nil || page.ID != "page-9" {
		t.Fatalf("FindPage() = %v, want page-9", page)
	}
	if gotFilter["filter"] == nil {
		t.Error("query request carried no filter")
	}
}

func TestClient_FindPage_Absent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	page, err := client.FindPage(context.Background(), "2026-08-26")
	if err != nil {
		t.Fatalf("FindPage() error = %v", err)
	}
	if page != nil {
		t.Errorf("FindPage() = %v, want nil for absent page", page)
	}
}

func TestClient_CreatePage(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pages" || r.Method != http.MethodPost {
			t.Errorf("%s %s, want POST /pages", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id": "page-1", "url": "https://notion.example.com/page-1",
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	page, err := client.CreatePage(context.Background(), testReport())
	if err != nil {
		t.Fatalf("CreatePage() error = %v", err)
	}
	if page.ID != "page-1" {
		t.Errorf("page.ID = %q, want page-1", page.ID)
	}
	if gotBody["cover"] == nil {
		t.Error("create request missing cover image")
	}
	props, _ := gotBody["properties"].(map[string]interface{})
	if props == nil || props["date"] == nil || props["category"] == nil {
		t.Errorf("create request properties incomplete: %v", props)
	}
}

func TestClient_AppendArticles_BlockOrder(t *testing.T) {
	var gotBody struct {
		Children []map[string]interface{} `json:"children"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blocks/page-1/children" || r.Method != http.MethodPatch {
			t.Errorf("%s %s, want PATCH /blocks/page-1/children", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	report := testReport()
	if err := client.AppendArticles(context.Background(), "page-1", report.Articles); err != nil {
		t.Fatalf("AppendArticles() error = %v", err)
	}

	wantTypes := []string{"heading_2", "paragraph", "image", "bulleted_list_item", "divider"}
	if len(gotBody.Children) != len(wantTypes) {
		t.Fatalf("children = %d blocks, want %d", len(gotBody.Children), len(wantTypes))
	}
	for i, want := range wantTypes {
		if got := gotBody.Children[i]["type"]; got != want {
			t.Errorf("block %d type = %v, want %s", i, got, want)
		}
	}
}

func TestClient_RateLimitRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0.05")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":"rate_limited"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	start := time.Now()
	if _, err := client.FindPage(context.Background(), "2026-08-26"); err != nil {
		t.Fatalf("FindPage() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", got)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("retried after %v, want at least Retry-After", elapsed)
	}
}

func TestClient_ArchivePagesBefore(t *testing.T) {
	var archived int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/databases/db-1/query":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []map[string]string{
					{"id": "old-1", "url": "u1"},
					{"id": "old-2", "url": "u2"},
				},
			})
		case r.Method == http.MethodPatch:
			var body map[string]interface{}
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)
			if body["archived"] != true {
				t.Errorf("patch body = %v, want archived:true", body)
			}
			atomic.AddInt32(&archived, 1)
			_, _ = w.Write([]byte("{}"))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	count, err := client.ArchivePagesBefore(context.Background(), time.Date(2026, 7, 27, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ArchivePagesBefore() error = %v", err)
	}
	if count != 2 || atomic.LoadInt32(&archived) != 2 {
		t.Errorf("archived %d pages (server saw %d), want 2", count, archived)
	}
}
