package model

import "fmt"

// Folder is a named container owning an ordered list of prompts.
type Folder struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Prompts   []Prompt `json:"prompts"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

// NewFolderParams holds parameters for creating a new Folder.
type NewFolderParams struct {
	Name string
}

// NewFolder creates an empty Folder with a generated ID and timestamps.
func NewFolder(params NewFolderParams) Folder {
	now := NowMillis()
	return Folder{
		ID:        GenerateID(),
		Name:      params.Name,
		Prompts:   []Prompt{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the folder and its prompts.
func (f Folder) Clone() Folder {
	prompts := make([]Prompt, len(f.Prompts))
	for i, p := range f.Prompts {
		prompts[i] = p.Clone()
	}
	f.Prompts = prompts
	return f
}

// PromptIndex returns the index of the prompt with the given ID, or -1.
func (f *Folder) PromptIndex(id string) int {
	for i := range f.Prompts {
		if f.Prompts[i].ID == id {
			return i
		}
	}
	return -1
}

// PromptByID finds a prompt by ID, returns nil if not found.
func (f *Folder) PromptByID(id string) *Prompt {
	if i := f.PromptIndex(id); i >= 0 {
		return &f.Prompts[i]
	}
	return nil
}

// CloneFolders deep-copies a folder slice. A nil input yields an empty slice.
func CloneFolders(folders []Folder) []Folder {
	out := make([]Folder, len(folders))
	for i, f := range folders {
		out[i] = f.Clone()
	}
	return out
}

// FolderIndex returns the index of the first folder with the given ID, or -1.
func FolderIndex(folders []Folder, id string) int {
	for i := range folders {
		if folders[i].ID == id {
			return i
		}
	}
	return -1
}

// FindFolder returns the index of the folder with the given ID, or an error
// wrapping ErrFolderNotFound.
func FindFolder(folders []Folder, id string) (int, error) {
	i := FolderIndex(folders, id)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrFolderNotFound, id)
	}
	return i, nil
}

// FindPrompt returns the index of the prompt with the given ID inside the
// folder, or an error wrapping ErrPromptNotFound.
func (f *Folder) FindPrompt(id string) (int, error) {
	i := f.PromptIndex(id)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}
	return i, nil
}

// NormalizeFolders ensures prompt slices are non-nil and every prompt's
// FolderID matches its owning folder.
func NormalizeFolders(folders []Folder) []Folder {
	if folders == nil {
		return []Folder{}
	}
	for i := range folders {
		if folders[i].Prompts == nil {
			folders[i].Prompts = []Prompt{}
		}
		for j := range folders[i].Prompts {
			folders[i].Prompts[j].FolderID = folders[i].ID
		}
	}
	return folders
}
