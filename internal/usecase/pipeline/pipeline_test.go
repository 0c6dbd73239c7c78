package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"newsdigest/internal/domain/entity"
	"newsdigest/internal/infra/ledger"
	"newsdigest/internal/usecase/fetch"
	"newsdigest/internal/usecase/pipeline"
	"newsdigest/internal/usecase/publish"
	"newsdigest/internal/usecase/report"
)

/* ───────── stubs ───────── */

type stubFetcher struct {
	entries map[string][]fetch.RawEntry
	errs    map[string]error
}

func (s *stubFetcher) Fetch(_ context.Context, src *entity.Source) ([]fetch.RawEntry, error) {
	if err := s.errs[src.Name]; err != nil {
		return nil, err
	}
	return s.entries[src.Name], nil
}

type stubSummarizer struct {
	mu       sync.Mutex
	inflight int32
	peak     int32
	fail     bool
}

func (s *stubSummarizer) SummarizeArticle(_ context.Context, art *entity.Article) error {
	cur := atomic.AddInt32(&s.inflight, 1)
	defer atomic.AddInt32(&s.inflight, -1)

	s.mu.Lock()
	if cur > s.peak {
		s.peak = cur
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	if s.fail {
		return errors.New("provider down")
	}
	art.Summary = "summary of " + art.Title
	return nil
}

type stubDestination struct {
	page     *publish.PageRef
	appended [][]*entity.Article
}

func (d *stubDestination) FindPage(_ context.Context, _ string) (*publish.PageRef, error) {
	return d.page, nil
}

func (d *stubDestination) CreatePage(_ context.Context, _ *entity.Report) (*publish.PageRef, error) {
	d.page = &publish.PageRef{ID: "page-1", URL: "https://notion.example.com/page-1"}
	return d.page, nil
}

func (d *stubDestination) AppendArticles(_ context.Context, _ string, articles []*entity.Article) error {
	d.appended = append(d.appended, articles)
	return nil
}

func (d *stubDestination) UpdateArticleIDs(_ context.Context, _ string, _ []string) error {
	return nil
}

type stubArchiver struct {
	cutoffs []time.Time
}

func (a *stubArchiver) ArchivePagesBefore(_ context.Context, cutoff time.Time) (int, error) {
	a.cutoffs = append(a.cutoffs, cutoff)
	return 1, nil
}

/* ───────── fixtures ───────── */

func entriesFor(n int) []fetch.RawEntry {
	entries := make([]fetch.RawEntry, n)
	for i := range entries {
		entries[i] = fetch.RawEntry{
			Title:     "Article " + string(rune('A'+i)),
			Link:      "https://example.com/" + string(rune('a'+i)),
			Content:   "content",
			Published: "2026-08-25T10:00:00Z",
		}
	}
	return entries
}

func newTestPipeline(t *testing.T, f fetch.Fetcher, summ pipeline.Summarizer, dest publish.Destination, arch pipeline.Archiver, cfg pipeline.Config, sources ...entity.Source) (*pipeline.Pipeline, *stubDestination) {
	t.Helper()

	fetchSvc := fetch.NewService(map[string]fetch.Fetcher{entity.KindRSS: f}, nil, fetch.DefaultConfig())

	led, err := ledger.Open(":memory:")
	if err != nil {
		t.Fatalf("ledger.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = led.Close() })

	store, err := report.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("report.NewStore() error = %v", err)
	}

	pub := publish.NewPublisher(led, dest)
	sd, _ := dest.(*stubDestination)
	return pipeline.New(fetchSvc, summ, store, pub, arch, sources, cfg), sd
}

func rssSource(name string) entity.Source {
	return entity.Source{Name: name, FeedURL: "https://" + name + ".example.com/feed", Kind: entity.KindRSS}
}

/* ───────── tests ───────── */

func TestRunCycle_EndToEnd(t *testing.T) {
	fetcher := &stubFetcher{entries: map[string][]fetch.RawEntry{"alpha": entriesFor(3)}}
	summ := &stubSummarizer{}
	dest := &stubDestination{}

	p, sd := newTestPipeline(t, fetcher, summ, dest, nil, pipeline.DefaultConfig(), rssSource("alpha"))

	stats, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	if stats.Articles != 3 {
		t.Errorf("Articles = %d, want 3", stats.Articles)
	}
	if stats.Published != 3 {
		t.Errorf("Published = %d, want 3", stats.Published)
	}
	if stats.PageURL == "" {
		t.Error("PageURL is empty after publish")
	}
	if len(sd.appended) != 1 {
		t.Fatalf("appended batches = %d, want 1", len(sd.appended))
	}
	for _, art := range sd.appended[0] {
		if art.Summary == "" {
			t.Errorf("article %s published without summary", art.Title)
		}
	}
}

// A second identical cycle must publish nothing: every id is in the ledger.
func TestRunCycle_SecondCyclePublishesNothing(t *testing.T) {
	fetcher := &stubFetcher{entries: map[string][]fetch.RawEntry{"alpha": entriesFor(2)}}
	dest := &stubDestination{}

	p, sd := newTestPipeline(t, fetcher, &stubSummarizer{}, dest, nil, pipeline.DefaultConfig(), rssSource("alpha"))

	if _, err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("first RunCycle() error = %v", err)
	}

	stats, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second RunCycle() error = %v", err)
	}
	if stats.Published != 0 {
		t.Errorf("second cycle Published = %d, want 0", stats.Published)
	}
	if len(sd.appended) != 1 {
		t.Errorf("appended batches = %d after two cycles, want 1", len(sd.appended))
	}
}

func TestRunCycle_SummarizeFailuresDegrade(t *testing.T) {
	fetcher := &stubFetcher{entries: map[string][]fetch.RawEntry{"alpha": entriesFor(2)}}
	dest := &stubDestination{}

	p, sd := newTestPipeline(t, fetcher, &stubSummarizer{fail: true}, dest, nil, pipeline.DefaultConfig(), rssSource("alpha"))

	stats, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if stats.SummarizeErrors != 2 {
		t.Errorf("SummarizeErrors = %d, want 2", stats.SummarizeErrors)
	}
	// Articles publish without summaries rather than being dropped.
	if stats.Published != 2 {
		t.Errorf("Published = %d, want 2", stats.Published)
	}
	for _, art := range sd.appended[0] {
		if art.Summary != "" {
			t.Errorf("failed article carries summary %q", art.Summary)
		}
	}
}

func TestRunCycle_FetchErrorsDoNotFailCycle(t *testing.T) {
	fetcher := &stubFetcher{
		entries: map[string][]fetch.RawEntry{"healthy": entriesFor(1)},
		errs:    map[string]error{"broken": errors.New("boom")},
	}
	dest := &stubDestination{}

	p, _ := newTestPipeline(t, fetcher, &stubSummarizer{}, dest, nil, pipeline.DefaultConfig(),
		rssSource("broken"), rssSource("healthy"))

	stats, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if stats.FetchErrors != 1 {
		t.Errorf("FetchErrors = %d, want 1", stats.FetchErrors)
	}
	if stats.Articles != 1 {
		t.Errorf("Articles = %d, want 1", stats.Articles)
	}
}

func TestRunCycle_SummarizerParallelismBounded(t *testing.T) {
	fetcher := &stubFetcher{entries: map[string][]fetch.RawEntry{"alpha": entriesFor(8)}}
	summ := &stubSummarizer{}

	cfg := pipeline.DefaultConfig()
	cfg.SummarizerParallelism = 2
	p, _ := newTestPipeline(t, fetcher, summ, &stubDestination{}, nil, cfg, rssSource("alpha"))

	if _, err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if summ.peak > 2 {
		t.Errorf("peak concurrent summarizations = %d, want at most 2", summ.peak)
	}
}

func TestRunCycle_RetentionCleanup(t *testing.T) {
	fetcher := &stubFetcher{entries: map[string][]fetch.RawEntry{"alpha": entriesFor(1)}}
	arch := &stubArchiver{}

	cfg := pipeline.DefaultConfig()
	cfg.RetentionDays = 30
	p, _ := newTestPipeline(t, fetcher, &stubSummarizer{}, &stubDestination{}, arch, cfg, rssSource("alpha"))

	if _, err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if len(arch.cutoffs) != 1 {
		t.Fatalf("archiver calls = %d, want 1", len(arch.cutoffs))
	}
	if until := time.Since(arch.cutoffs[0]); until < 29*24*time.Hour {
		t.Errorf("cutoff %v is too recent for a 30 day retention window", arch.cutoffs[0])
	}
}
