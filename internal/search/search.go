package search

import (
	"strings"

	"github.com/nikbrunner/pm/internal/model"
	"github.com/sahilm/fuzzy"
)

// allCategories are the category names that match every popular prompt.
var allCategories = map[string]bool{
	"":                true,
	model.CategoryAll: true,
	"全部":              true,
}

// Result represents a fuzzy search match.
type Result struct {
	Prompt         *model.Prompt
	FolderName     string
	MatchedIndexes []int
	Score          int
}

type hit struct {
	prompt *model.Prompt
	folder string
}

// promptTitles implements fuzzy.Source over every prompt in every folder.
type promptTitles []hit

func (pt promptTitles) String(i int) string {
	return pt[i].prompt.Title
}

func (pt promptTitles) Len() int {
	return len(pt)
}

// FuzzySearchPrompts searches all prompts by title using fuzzy matching.
// Returns results sorted by match score (best first).
func FuzzySearchPrompts(folders []model.Folder, query string) []Result {
	if query == "" {
		return nil
	}

	var prompts promptTitles
	for i := range folders {
		for j := range folders[i].Prompts {
			prompts = append(prompts, hit{prompt: &folders[i].Prompts[j], folder: folders[i].Name})
		}
	}

	matches := fuzzy.FindFrom(query, prompts)

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Prompt:         prompts[m.Index].prompt,
			FolderName:     prompts[m.Index].folder,
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}

// FilterFolders returns the folders whose name contains term, ignoring case.
// An empty term returns every folder.
func FilterFolders(folders []model.Folder, term string) []model.Folder {
	term = strings.ToLower(strings.TrimSpace(term))
	out := []model.Folder{}
	for _, f := range folders {
		if term == "" || strings.Contains(strings.ToLower(f.Name), term) {
			out = append(out, f)
		}
	}
	return out
}

// FilterPopular narrows the curated prompts to a category and a search term.
// The term is matched case-insensitively against title, content and tags.
// Categories are kept as is.
func FilterPopular(resp model.PromptsResponse, category, term string) model.PromptsResponse {
	term = strings.ToLower(strings.TrimSpace(term))
	out := model.PromptsResponse{
		Categories: resp.Categories,
		Prompts:    []model.PopularPrompt{},
	}
	for _, p := range resp.Prompts {
		if !allCategories[category] && p.Category != category {
			continue
		}
		if term != "" && !matchesPopular(p, term) {
			continue
		}
		out.Prompts = append(out.Prompts, p)
	}
	return out
}

func matchesPopular(p model.PopularPrompt, term string) bool {
	if strings.Contains(strings.ToLower(p.Title), term) ||
		strings.Contains(strings.ToLower(p.Content), term) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}
