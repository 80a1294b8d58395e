package state

import "github.com/nikbrunner/pm/internal/model"

// Wire names of the actions.
const (
	TypeSetFolders     = "SET_FOLDERS"
	TypeAddFolder      = "ADD_FOLDER"
	TypeUpdateFolder   = "UPDATE_FOLDER"
	TypeDeleteFolder   = "DELETE_FOLDER"
	TypeSelectFolder   = "SELECT_FOLDER"
	TypeSetCurrentTab  = "SET_CURRENT_TAB"
	TypeAddPrompt      = "ADD_PROMPT"
	TypeUpdatePrompt   = "UPDATE_PROMPT"
	TypeDeletePrompt   = "DELETE_PROMPT"
	TypeUpdateSettings = "UPDATE_SETTINGS"
	TypeRestoreData    = "RESTORE_DATA"
)

// Action is a state transition request. The set of actions is closed.
type Action interface {
	Type() string
	action()
}

// SetFolders replaces the folder collection.
type SetFolders struct {
	Folders []model.Folder
}

// AddFolder appends a folder. Duplicate IDs are not rejected.
type AddFolder struct {
	Folder model.Folder
}

// RenameFolder changes only a folder's name.
type RenameFolder struct {
	FolderID string
	Name     string
}

// ReplaceFolder overwrites the folder with the same ID.
type ReplaceFolder struct {
	Folder model.Folder
}

// DeleteFolder removes a folder together with its prompts.
type DeleteFolder struct {
	FolderID string
}

// SelectFolder selects the folder with the given ID. An empty ID clears the selection.
type SelectFolder struct {
	FolderID string
}

// SetCurrentTab switches the current tab.
type SetCurrentTab struct {
	Tab string
}

// AddPrompt appends a prompt to a folder.
type AddPrompt struct {
	FolderID string
	Prompt   model.Prompt
}

// UpdatePrompt replaces the prompt with the same ID in a folder.
type UpdatePrompt struct {
	FolderID string
	Prompt   model.Prompt
}

// DeletePrompt removes a prompt from a folder.
type DeletePrompt struct {
	FolderID string
	PromptID string
}

// UpdateSettings replaces the settings.
type UpdateSettings struct {
	Settings model.Settings
}

// RestoreData replaces the whole state.
type RestoreData struct {
	State model.AppState
}

func (SetFolders) Type() string     { return TypeSetFolders }
func (AddFolder) Type() string      { return TypeAddFolder }
func (RenameFolder) Type() string   { return TypeUpdateFolder }
func (ReplaceFolder) Type() string  { return TypeUpdateFolder }
func (DeleteFolder) Type() string   { return TypeDeleteFolder }
func (SelectFolder) Type() string   { return TypeSelectFolder }
func (SetCurrentTab) Type() string  { return TypeSetCurrentTab }
func (AddPrompt) Type() string      { return TypeAddPrompt }
func (UpdatePrompt) Type() string   { return TypeUpdatePrompt }
func (DeletePrompt) Type() string   { return TypeDeletePrompt }
func (UpdateSettings) Type() string { return TypeUpdateSettings }
func (RestoreData) Type() string    { return TypeRestoreData }

func (SetFolders) action()     {}
func (AddFolder) action()      {}
func (RenameFolder) action()   {}
func (ReplaceFolder) action()  {}
func (DeleteFolder) action()   {}
func (SelectFolder) action()   {}
func (SetCurrentTab) action()  {}
func (AddPrompt) action()      {}
func (UpdatePrompt) action()   {}
func (DeletePrompt) action()   {}
func (UpdateSettings) action() {}
func (RestoreData) action()    {}
