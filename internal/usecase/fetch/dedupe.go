package fetch

import (
	"sort"

	"newsdigest/internal/domain/entity"
)

// Dedupe removes duplicate articles by link (first seen wins) and orders the
// batch by publication date, newest first. The sort is stable: articles with
// equal timestamps keep their relative fetch order. Idempotent; this ordering
// is the sole ranking signal presented downstream.
func Dedupe(articles []*entity.Article) []*entity.Article {
	seen := make(map[string]bool, len(articles))
	unique := make([]*entity.Article, 0, len(articles))

	for _, art := range articles {
		if art == nil || seen[art.Link] {
			continue
		}
		seen[art.Link] = true
		unique = append(unique, art)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].PublishedAt.After(unique[j].PublishedAt)
	})

	return unique
}
