// Command worker runs the news digest pipeline on a fixed schedule:
// fetch configured feeds, summarize new articles, persist the daily
// report and publish it to Notion.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"newsdigest/internal/config"
	"newsdigest/internal/infra/fetcher"
	"newsdigest/internal/infra/ledger"
	"newsdigest/internal/infra/notion"
	"newsdigest/internal/infra/scraper"
	"newsdigest/internal/infra/summarizer"
	workerPkg "newsdigest/internal/infra/worker"
	"newsdigest/internal/observability/logging"
	"newsdigest/internal/observability/tracing"
	"newsdigest/internal/usecase/fetch"
	"newsdigest/internal/usecase/pipeline"
	"newsdigest/internal/usecase/publish"
	"newsdigest/internal/usecase/report"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	runOnce := flag.Bool("once", false, "run one cycle immediately and exit")
	flag.Parse()

	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("configuration invalid", slog.Any("error", err))
		os.Exit(1)
	}

	workerConfig := workerPkg.LoadConfigFromEnv(logger)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("cycle_timeout", workerConfig.CycleTimeout),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort))

	shutdownTracing := tracing.InitTracer("newsdigest-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipe, cleanup, err := buildPipeline(logger, cfg, workerConfig)
	if err != nil {
		logger.Error("pipeline setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	workerMetrics := workerPkg.NewMetrics()

	if *runOnce {
		runCycleJob(ctx, logger, pipe, workerMetrics)
		flushTracing(logger, shutdownTracing)
		return
	}

	startMetricsServer(ctx, logger, workerConfig.MetricsPort)

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerConfig.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	loc, err := time.LoadLocation(workerConfig.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", workerConfig.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	// SkipIfStillRunning keeps cycles from overlapping when one overruns
	// its slot.
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	_, err = c.AddFunc(workerConfig.CronSchedule, func() {
		runCycleJob(ctx, logger, pipe, workerMetrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	cronCtx := c.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(workerConfig.CycleTimeout):
		logger.Warn("running cycle did not finish before shutdown deadline")
	}

	flushTracing(logger, shutdownTracing)
	logger.Info("worker stopped")
}

// buildPipeline wires the pipeline from the loaded configuration. The
// returned cleanup closes the publish ledger.
func buildPipeline(logger *slog.Logger, cfg *config.Config, workerConfig workerPkg.Config) (*pipeline.Pipeline, func(), error) {
	var contentFetcher fetch.ContentFetcher
	if cfg.Pipeline.ContentFetchEnabled {
		contentFetcher = fetcher.NewReadabilityFetcher(fetcher.DefaultConfig())
		logger.Info("content enhancement enabled",
			slog.Int("threshold", cfg.Pipeline.ContentThreshold))
	}

	fetchService := fetch.NewService(
		scraper.NewFetchers(newFeedHTTPClient()),
		contentFetcher,
		fetch.Config{
			SourceTimeout:    cfg.Pipeline.SourceTimeout,
			MaxPerSource:     cfg.Pipeline.MaxPerSource,
			ContentThreshold: cfg.Pipeline.ContentThreshold,
		},
	)

	summarizerService, err := summarizer.NewFromConfig(cfg.Summarizer)
	if err != nil {
		return nil, nil, fmt.Errorf("summarizer: %w", err)
	}
	logger.Info("summarizer initialized", slog.String("provider", cfg.Summarizer.Provider))

	publishLedger, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}

	reportStore, err := report.NewStore(cfg.Reports.Dir)
	if err != nil {
		_ = publishLedger.Close()
		return nil, nil, fmt.Errorf("report store: %w", err)
	}

	notionClient := notion.NewClient(cfg.Notion)
	publisher := publish.NewPublisher(publishLedger, notionClient)

	pipe := pipeline.New(
		fetchService,
		summarizerService,
		reportStore,
		publisher,
		notionClient,
		cfg.Sources,
		pipeline.Config{
			SummarizerParallelism: cfg.Pipeline.SummarizerParallelism,
			CycleTimeout:          workerConfig.CycleTimeout,
			RetentionDays:         cfg.Pipeline.RetentionDays,
		},
	)

	cleanup := func() {
		if err := publishLedger.Close(); err != nil {
			logger.Error("failed to close ledger", slog.Any("error", err))
		}
	}
	return pipe, cleanup, nil
}

// runCycleJob executes a single pipeline cycle and records run metrics.
func runCycleJob(ctx context.Context, logger *slog.Logger, pipe *pipeline.Pipeline, m *workerPkg.Metrics) {
	start := time.Now()
	logger.Info("cycle started")

	stats, err := pipe.RunCycle(ctx)
	m.RecordJobDuration(time.Since(start).Seconds())
	if err != nil {
		logger.Error("cycle failed", slog.Any("error", err))
		m.RecordJobRun("failure")
		return
	}

	m.RecordJobRun("success")
	m.RecordArticlesPublished(stats.Published)
	m.RecordLastSuccess()
}

func flushTracing(logger *slog.Logger, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Error("tracer shutdown failed", slog.Any("error", err))
	}
}

// newFeedHTTPClient builds the shared HTTP client for feed fetching with
// connection pooling and TLS 1.2+.
func newFeedHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}
