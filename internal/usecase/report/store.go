// Package report builds the day-scoped report and persists it as JSON for
// inspection and reprocessing.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"newsdigest/internal/domain/entity"
)

// Store saves and loads reports as JSON files named report_YYYY-MM-DD.json
// in the output directory.
type Store struct {
	dir string
}

// NewStore creates a report store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("report output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Build assembles the report for the given instant's UTC day.
func Build(now time.Time, articles []*entity.Article) *entity.Report {
	return entity.NewReport(now, articles)
}

// Save writes the report to its date-keyed file, replacing any previous
// version. The write goes through a temp file and rename so a crash never
// leaves a half-written report.
func (s *Store) Save(r *entity.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	path := s.pathFor(r.Date)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}

	slog.Info("report saved",
		slog.String("path", path),
		slog.Int("articles", r.TotalArticles))
	return nil
}

// Load reads the report for the given date key (YYYY-MM-DD). Returns
// os.ErrNotExist when no report was saved for that day.
func (s *Store) Load(date string) (*entity.Report, error) {
	data, err := os.ReadFile(s.pathFor(date))
	if err != nil {
		return nil, fmt.Errorf("read report for %s: %w", date, err)
	}
	var r entity.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report for %s: %w", date, err)
	}
	return &r, nil
}

func (s *Store) pathFor(date string) string {
	return filepath.Join(s.dir, "report_"+date+".json")
}
