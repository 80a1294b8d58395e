package model

// CategoryAll matches every popular prompt category.
const CategoryAll = "All"

// PopularPrompt is a read-only curated prompt template from the remote feed.
type PopularPrompt struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

// PromptsResponse is the curated prompt feed payload.
type PromptsResponse struct {
	Categories []string        `json:"categories"`
	Prompts    []PopularPrompt `json:"prompts"`
}

// PopularByID finds a curated prompt by ID, returns nil if not found.
func (r *PromptsResponse) PopularByID(id string) *PopularPrompt {
	for i := range r.Prompts {
		if r.Prompts[i].ID == id {
			return &r.Prompts[i]
		}
	}
	return nil
}
