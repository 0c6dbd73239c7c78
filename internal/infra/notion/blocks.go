package notion

import (
	"time"

	"newsdigest/internal/domain/entity"
)

// block is one Notion content block in wire shape.
type block map[string]interface{}

// buildArticleBlocks renders articles into the page block sequence: a linked
// heading, the summary paragraph, an optional image, a published-date bullet,
// and a divider after each article.
func buildArticleBlocks(articles []*entity.Article) []block {
	var blocks []block
	for _, art := range articles {
		if art == nil {
			continue
		}

		blocks = append(blocks, block{
			"type": "heading_2",
			"heading_2": map[string]interface{}{
				"rich_text": []interface{}{
					map[string]interface{}{
						"type": "text",
						"text": map[string]interface{}{
							"content": art.Title,
							"link":    map[string]string{"url": art.Link},
						},
					},
				},
			},
		})

		if art.Summary != "" {
			blocks = append(blocks, block{
				"type": "paragraph",
				"paragraph": map[string]interface{}{
					"rich_text": []interface{}{
						map[string]interface{}{
							"type": "text",
							"text": map[string]interface{}{"content": art.Summary},
						},
					},
				},
			})
		}

		if art.ImageURL != "" {
			blocks = append(blocks, block{
				"type": "image",
				"image": map[string]interface{}{
					"type":     "external",
					"external": map[string]string{"url": art.ImageURL},
				},
			})
		}

		blocks = append(blocks, block{
			"type": "bulleted_list_item",
			"bulleted_list_item": map[string]interface{}{
				"rich_text": []interface{}{
					map[string]interface{}{
						"type": "text",
						"text": map[string]interface{}{
							"content": "Published: " + art.PublishedAt.UTC().Format(time.RFC3339),
						},
					},
				},
			},
		})

		blocks = append(blocks, block{
			"type":    "divider",
			"divider": map[string]interface{}{},
		})
	}
	return blocks
}
