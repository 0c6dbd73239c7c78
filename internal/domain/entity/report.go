package entity

import "time"

// Report is the day-scoped aggregate of summarized articles handed to the
// publisher. It is a transient view produced once per cycle; only the
// published article ids outlive it (in the ledger).
type Report struct {
	// Date is the publishing period key, formatted YYYY-MM-DD in UTC.
	Date string `json:"date"`

	Articles []*Article `json:"articles"`

	GeneratedAt   time.Time `json:"generated_at"`
	TotalArticles int       `json:"total_articles"`
}

// NewReport builds a Report for the given instant's UTC day.
func NewReport(now time.Time, articles []*Article) *Report {
	return &Report{
		Date:          now.UTC().Format("2006-01-02"),
		Articles:      articles,
		GeneratedAt:   now.UTC(),
		TotalArticles: len(articles),
	}
}
