// Package metrics provides centralized Prometheus metrics for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics track per-cycle behavior end to end.
var (
	// SourceFetchesTotal counts feed fetch attempts per source and outcome.
	SourceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_source_fetches_total",
			Help: "Total number of per-source feed fetches",
		},
		[]string{"source", "status"},
	)

	// FeedEntriesTotal counts raw entries seen per source before filtering.
	FeedEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_feed_entries_total",
			Help: "Total number of raw feed entries parsed",
		},
		[]string{"source"},
	)

	// ArticlesKeptTotal counts articles that survived relevance filtering
	// and normalization, per source.
	ArticlesKeptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_articles_kept_total",
			Help: "Total number of articles kept after filtering and normalization",
		},
		[]string{"source"},
	)

	// SummariesTotal counts summarization outcomes.
	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_summaries_total",
			Help: "Total number of article summarizations",
		},
		[]string{"status"},
	)

	// SummarizationDuration measures summarization latency per article.
	SummarizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_summarization_duration_seconds",
			Help:    "Article summarization duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// PublishesTotal counts publish attempts per outcome.
	PublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_publishes_total",
			Help: "Total number of publish attempts",
		},
		[]string{"status"},
	)

	// ArticlesPublishedTotal counts articles delivered to the destination.
	ArticlesPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "digest_articles_published_total",
			Help: "Total number of articles appended to the destination",
		},
	)

	// ContentFetchAttemptsTotal counts content enhancement fetches by outcome.
	ContentFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_content_fetch_attempts_total",
			Help: "Total number of full-content fetch attempts",
		},
		[]string{"status"},
	)
)
