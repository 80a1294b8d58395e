package popular

import "github.com/nikbrunner/pm/internal/model"

// DefaultPrompts returns the built-in dataset served when neither the network
// nor the cache can provide one.
func DefaultPrompts() model.PromptsResponse {
	return model.PromptsResponse{
		Categories: []string{model.CategoryAll, "General", "Writing", "Programming", "Business"},
		Prompts: []model.PopularPrompt{
			{
				ID:       "pp1",
				Title:    "Role-play assistant",
				Content:  "I want you to act as an assistant and help me with a variety of tasks. Be professional, friendly and patient.",
				Tags:     []string{"role-play", "assistant"},
				Category: "General",
			},
			{
				ID:       "pp2",
				Title:    "Academic paper editing",
				Content:  "Please edit the grammar and wording of the following academic paper to make it more professional and fluent, while keeping its academic style and terminology.",
				Tags:     []string{"academic", "writing"},
				Category: "Writing",
			},
		},
	}
}
