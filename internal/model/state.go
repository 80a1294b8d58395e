package model

// TabPrompts is the default current tab.
const TabPrompts = "prompts"

// AppState is the single authoritative in-memory tree.
type AppState struct {
	Folders        []Folder `json:"folders"`
	SelectedFolder *Folder  `json:"selectedFolder"` // nil = nothing selected
	CurrentTab     string   `json:"currentTab"`
	Settings       Settings `json:"settings"`
}

// NewAppState creates the default initial state.
func NewAppState() AppState {
	return AppState{
		Folders:        []Folder{},
		SelectedFolder: nil,
		CurrentTab:     TabPrompts,
		Settings:       DefaultSettings(),
	}
}

// Clone returns a deep copy sharing no slices with s.
func (s AppState) Clone() AppState {
	s.Folders = CloneFolders(s.Folders)
	if s.SelectedFolder != nil {
		selected := s.SelectedFolder.Clone()
		s.SelectedFolder = &selected
	}
	return s
}

// FolderByID finds a folder by ID, returns nil if not found.
func (s *AppState) FolderByID(id string) *Folder {
	if i := FolderIndex(s.Folders, id); i >= 0 {
		return &s.Folders[i]
	}
	return nil
}

// PromptByID searches every folder for the prompt with the given ID.
func (s *AppState) PromptByID(id string) (*Folder, *Prompt) {
	for i := range s.Folders {
		if p := s.Folders[i].PromptByID(id); p != nil {
			return &s.Folders[i], p
		}
	}
	return nil, nil
}

// PromptCount returns the number of prompts across all folders.
func (s *AppState) PromptCount() int {
	n := 0
	for _, f := range s.Folders {
		n += len(f.Prompts)
	}
	return n
}
