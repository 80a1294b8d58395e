package popular

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/nikbrunner/pm/internal/model"
)

// fromFeed converts an RSS/Atom feed into curated prompts. Item categories
// become tags, the first one is the prompt's category.
func fromFeed(feed *gofeed.Feed) model.PromptsResponse {
	resp := model.PromptsResponse{
		Categories: []string{model.CategoryAll},
		Prompts:    []model.PopularPrompt{},
	}
	seen := map[string]bool{model.CategoryAll: true}

	for i, item := range feed.Items {
		id := item.GUID
		if id == "" {
			id = item.Link
		}
		if id == "" {
			id = fmt.Sprintf("feed-%d", i+1)
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}

		tags := []string{}
		for _, c := range item.Categories {
			if c = strings.TrimSpace(c); c != "" {
				tags = append(tags, c)
			}
		}

		category := ""
		if len(tags) > 0 {
			category = tags[0]
			if !seen[category] {
				seen[category] = true
				resp.Categories = append(resp.Categories, category)
			}
		}

		resp.Prompts = append(resp.Prompts, model.PopularPrompt{
			ID:       id,
			Title:    strings.TrimSpace(item.Title),
			Content:  strings.TrimSpace(content),
			Tags:     tags,
			Category: category,
		})
	}

	return resp
}
