package model

import "time"

// Prompt is a titled block of reusable text owned by exactly one Folder.
type Prompt struct {
	ID        string   `json:"id"`
	FolderID  string   `json:"folderId"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	CreatedAt int64    `json:"createdAt"` // unix milliseconds
	UpdatedAt int64    `json:"updatedAt"` // unix milliseconds
}

// NewPromptParams holds parameters for creating a new Prompt.
type NewPromptParams struct {
	FolderID string
	Title    string
	Content  string
	Tags     []string
}

// NewPrompt creates a Prompt with a generated ID and timestamps.
func NewPrompt(params NewPromptParams) Prompt {
	now := NowMillis()
	return Prompt{
		ID:        GenerateID(),
		FolderID:  params.FolderID,
		Title:     params.Title,
		Content:   params.Content,
		Tags:      cloneTags(params.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PromptFromPopular copies a curated prompt into a new user-owned Prompt.
func PromptFromPopular(p PopularPrompt, folderID string) Prompt {
	return NewPrompt(NewPromptParams{
		FolderID: folderID,
		Title:    p.Title,
		Content:  p.Content,
		Tags:     p.Tags,
	})
}

// Clone returns a deep copy of the prompt.
func (p Prompt) Clone() Prompt {
	p.Tags = cloneTags(p.Tags)
	return p
}

// NowMillis returns the current wall-clock time in unix milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

func cloneTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
