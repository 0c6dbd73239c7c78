package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks cron job execution for the worker.
type Metrics struct {
	// JobRunsTotal counts cycle runs by status (success/failure).
	JobRunsTotal *prometheus.CounterVec

	// JobDurationSeconds measures cycle duration.
	JobDurationSeconds prometheus.Histogram

	// JobArticlesTotal counts articles published across all cycles.
	JobArticlesTotal prometheus.Counter

	// JobLastSuccessTimestamp is the Unix time of the last successful cycle.
	JobLastSuccessTimestamp prometheus.Gauge
}

// NewMetrics creates and registers the worker metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_worker_job_runs_total",
			Help: "Total number of pipeline cycle runs by status",
		}, []string{"status"}),

		JobDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "digest_worker_job_duration_seconds",
			Help:    "Duration of one pipeline cycle in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		JobArticlesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "digest_worker_job_articles_published_total",
			Help: "Total number of articles published across all cycles",
		}),

		JobLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "digest_worker_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful cycle",
		}),
	}
}

// RecordJobRun increments the run counter with "success" or "failure".
func (m *Metrics) RecordJobRun(status string) {
	m.JobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes one cycle's duration in seconds.
func (m *Metrics) RecordJobDuration(seconds float64) {
	m.JobDurationSeconds.Observe(seconds)
}

// RecordArticlesPublished adds the cycle's published article count.
func (m *Metrics) RecordArticlesPublished(count int) {
	m.JobArticlesTotal.Add(float64(count))
}

// RecordLastSuccess stamps the last successful cycle time.
func (m *Metrics) RecordLastSuccess() {
	m.JobLastSuccessTimestamp.SetToCurrentTime()
}
