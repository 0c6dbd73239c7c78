package metrics

import "time"

// RecordSourceFetch records the outcome of a single source fetch.
// Status should be "success" or "failure".
func RecordSourceFetch(sourceName string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	SourceFetchesTotal.WithLabelValues(sourceName, status).Inc()
}

// RecordFeedEntries records the number of raw entries parsed from a source.
func RecordFeedEntries(sourceName string, count int) {
	FeedEntriesTotal.WithLabelValues(sourceName).Add(float64(count))
}

// RecordArticlesKept records how many articles survived filtering for a source.
func RecordArticlesKept(sourceName string, count int) {
	ArticlesKeptTotal.WithLabelValues(sourceName).Add(float64(count))
}

// RecordSummary records the result of an article summarization.
func RecordSummary(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	SummariesTotal.WithLabelValues(status).Inc()
	SummarizationDuration.Observe(duration.Seconds())
}

// RecordPublish records a publish attempt and the number of articles delivered.
func RecordPublish(success bool, published int) {
	status := "success"
	if !success {
		status = "failure"
	}
	PublishesTotal.WithLabelValues(status).Inc()
	if published > 0 {
		ArticlesPublishedTotal.Add(float64(published))
	}
}

// RecordContentFetch records a content enhancement fetch outcome.
func RecordContentFetch(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	ContentFetchAttemptsTotal.WithLabelValues(status).Inc()
}
