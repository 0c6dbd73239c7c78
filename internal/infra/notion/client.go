// Package notion implements the publishing destination against the Notion
// REST API: period-scoped page lookup, page creation, block append, property
// updates, and retention archiving.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/resilience/circuitbreaker"
	"newsdigest/internal/resilience/retry"
	"newsdigest/internal/usecase/publish"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	notionVersion  = "2022-06-28"

	// Notion allows 3 requests per second on average.
	requestsPerSecond = 3.0
	requestBurst      = 3
)

// Config holds destination settings.
type Config struct {
	// APIKey is the Notion integration token.
	APIKey string `yaml:"api_key"`

	// DatabaseID is the database that holds report pages.
	DatabaseID string `yaml:"database_id"`

	// Category tags report pages and scopes the period lookup.
	Category string `yaml:"category"`

	// CoverImageURL is set as the page cover on creation. Optional.
	CoverImageURL string `yaml:"cover_image_url"`

	// BaseURL overrides the API endpoint. Used in tests.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds one API request.
	Timeout time.Duration `yaml:"timeout"`
}

// Validate checks required credentials and applies defaults.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("notion api key is required")
	}
	if c.DatabaseID == "" {
		return errors.New("notion database id is required")
	}
	if c.Category == "" {
		c.Category = "AI Daily Report"
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

// Client talks to the Notion API. Implements publish.Destination.
type Client struct {
	cfg            Config
	httpClient     *http.Client
	limiter        *rate.Limiter
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewClient creates a destination client. The configuration must already be
// validated.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:            cfg,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		limiter:        rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		circuitBreaker: circuitbreaker.New(circuitbreaker.DestinationConfig()),
		retryConfig:    retry.PublishConfig(),
	}
}

var _ publish.Destination = (*Client)(nil)

// FindPage returns the report page for the given period key, or nil when no
// page exists yet. The lookup matches both the date property and the
// configured category.
func (c *Client) FindPage(ctx context.Context, periodKey string) (*publish.PageRef, error) {
	body := map[string]interface{}{
		"filter": map[string]interface{}{
			"and": []interface{}{
				map[string]interface{}{
					"property": "date",
					"date":     map[string]string{"equals": periodKey},
				},
				map[string]interface{}{
					"property": "category",
					"select":   map[string]string{"equals": c.cfg.Category},
				},
			},
		},
	}

	var result struct {
		Results []pageObject `json:"results"`
	}
	err := c.call(ctx, http.MethodPost, "/databases/"+c.cfg.DatabaseID+"/query", body, &result)
	if err != nil {
		return nil, fmt.Errorf("query report page: %w", err)
	}
	if len(result.Results) == 0 {
		return nil, nil
	}
	return &publish.PageRef{ID: result.Results[0].ID, URL: result.Results[0].URL}, nil
}

// CreatePage creates the period's report page with its properties and cover
// image, returning its reference.
func (c *Client) CreatePage(ctx context.Context, report *entity.Report) (*publish.PageRef, error) {
	body := map[string]interface{}{
		"parent":     map[string]string{"database_id": c.cfg.DatabaseID},
		"properties": c.pageProperties(report),
	}
	if c.cfg.CoverImageURL != "" {
		body["cover"] = map[string]interface{}{
			"type":     "external",
			"external": map[string]string{"url": c.cfg.CoverImageURL},
		}
	}

	var page pageObject
	if err := c.call(ctx, http.MethodPost, "/pages", body, &page); err != nil {
		return nil, fmt.Errorf("create report page: %w", err)
	}

	slog.Info("created report page",
		slog.String("page_id", page.ID),
		slog.String("period", report.Date))

	return &publish.PageRef{ID: page.ID, URL: page.URL}, nil
}

// AppendArticles appends each article's content blocks to the page, in the
// given order.
func (c *Client) AppendArticles(ctx context.Context, pageID string, articles []*entity.Article) error {
	blocks := buildArticleBlocks(articles)
	if len(blocks) == 0 {
		return nil
	}

	body := map[string]interface{}{"children": blocks}
	if err := c.call(ctx, http.MethodPatch, "/blocks/"+pageID+"/children", body, nil); err != nil {
		return fmt.Errorf("append article blocks: %w", err)
	}
	return nil
}

// UpdateArticleIDs stores the published article ids on the page's
// multi-select property for cross-page diagnostics.
func (c *Client) UpdateArticleIDs(ctx context.Context, pageID string, ids []string) error {
	options := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		options = append(options, map[string]string{"name": id})
	}
	body := map[string]interface{}{
		"properties": map[string]interface{}{
			"article_ids": map[string]interface{}{"multi_select": options},
		},
	}
	if err := c.call(ctx, http.MethodPatch, "/pages/"+pageID, body, nil); err != nil {
		return fmt.Errorf("update article ids: %w", err)
	}
	return nil
}

// ArchivePagesBefore archives report pages in the configured category whose
// date is before cutoff. Returns the number of pages archived.
func (c *Client) ArchivePagesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	body := map[string]interface{}{
		"filter": map[string]interface{}{
			"and": []interface{}{
				map[string]interface{}{
					"property": "date",
					"date":     map[string]string{"before": cutoff.UTC().Format("2006-01-02")},
				},
				map[string]interface{}{
					"property": "category",
					"select":   map[string]string{"equals": c.cfg.Category},
				},
			},
		},
	}

	var result struct {
		Results []pageObject `json:"results"`
	}
	if err := c.call(ctx, http.MethodPost, "/databases/"+c.cfg.DatabaseID+"/query", body, &result); err != nil {
		return 0, fmt.Errorf("query old report pages: %w", err)
	}

	archived := 0
	for _, page := range result.Results {
		patch := map[string]interface{}{"archived": true}
		if err := c.call(ctx, http.MethodPatch, "/pages/"+page.ID, patch, nil); err != nil {
			return archived, fmt.Errorf("archive page %s: %w", page.ID, err)
		}
		archived++
	}

	if archived > 0 {
		slog.Info("archived old report pages", slog.Int("count", archived))
	}
	return archived, nil
}

// pageObject is the subset of a Notion page we read back.
type pageObject struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// pageProperties builds the property set for a new report page.
func (c *Client) pageProperties(report *entity.Report) map[string]interface{} {
	ids := make([]map[string]string, 0, len(report.Articles))
	for _, art := range report.Articles {
		ids = append(ids, map[string]string{"name": art.ID})
	}

	return map[string]interface{}{
		"title": map[string]interface{}{
			"title": []interface{}{
				map[string]interface{}{
					"text": map[string]string{
						"content": fmt.Sprintf("【%s】%s", c.cfg.Category, report.Date),
					},
				},
			},
		},
		"type":     map[string]interface{}{"select": map[string]string{"name": "Post"}},
		"status":   map[string]interface{}{"select": map[string]string{"name": "Published"}},
		"date":     map[string]interface{}{"date": map[string]string{"start": report.Date}},
		"category": map[string]interface{}{"select": map[string]string{"name": c.cfg.Category}},
		"article_ids": map[string]interface{}{
			"multi_select": ids,
		},
	}
}

// call performs one rate-limited API request with retry and circuit breaker,
// decoding a JSON response into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	return retry.WithBackoff(ctx, c.retryConfig, retry.DefaultClassifier, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, c.doCall(ctx, method, path, body, out)
		})
		if err != nil && errors.Is(err, gobreaker.ErrOpenState) {
			slog.Warn("destination circuit breaker open, request rejected",
				slog.String("path", path),
				slog.String("state", c.circuitBreaker.State().String()))
		}
		return err
	})
}

// doCall performs the HTTP request without retry or circuit breaker.
func (c *Client) doCall(ctx context.Context, method, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &retry.RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    fmt.Sprintf("notion rate limited: %s", string(respBody)),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("notion api %s %s: %s", method, path, string(respBody)),
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// parseRetryAfter converts a Retry-After header value in seconds.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
