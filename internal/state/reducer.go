package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/nikbrunner/pm/internal/model"
)

// Errors returned by the reducer, codec and Manager.
var (
	ErrUnknownAction  = errors.New("unknown action")
	ErrInvalidPayload = errors.New("invalid action payload")
	ErrClosed         = errors.New("state manager closed")
)

// nowFunc returns wall-clock unix milliseconds. Replaced in tests.
var nowFunc = func() int64 {
	return time.Now().UnixMilli()
}

// Reduce applies a to s and returns the next state. s is never modified.
// A rejected action returns s unchanged together with the error.
//
// After every accepted action SelectedFolder is nil or a copy of the folder
// with the same ID in Folders.
func Reduce(s model.AppState, a Action) (model.AppState, error) {
	next := s.Clone()

	if err := apply(&next, a); err != nil {
		return s, err
	}

	next.Folders = model.NormalizeFolders(next.Folders)
	next.SelectedFolder = selection(next.Folders, next.SelectedFolder)
	return next, nil
}

func apply(s *model.AppState, a Action) error {
	switch a := a.(type) {
	case SetFolders:
		s.Folders = model.CloneFolders(a.Folders)

	case AddFolder:
		s.Folders = append(s.Folders, a.Folder.Clone())

	case RenameFolder:
		i, err := model.FindFolder(s.Folders, a.FolderID)
		if err != nil {
			return err
		}
		s.Folders[i].Name = a.Name
		s.Folders[i].UpdatedAt = nowFunc()

	case ReplaceFolder:
		i, err := model.FindFolder(s.Folders, a.Folder.ID)
		if err != nil {
			return err
		}
		folder := a.Folder.Clone()
		folder.UpdatedAt = nowFunc()
		s.Folders[i] = folder

	case DeleteFolder:
		i, err := model.FindFolder(s.Folders, a.FolderID)
		if err != nil {
			return err
		}
		// Prompts are owned by the folder and go with it
		s.Folders = append(s.Folders[:i], s.Folders[i+1:]...)

	case SelectFolder:
		if a.FolderID == "" {
			s.SelectedFolder = nil
			return nil
		}
		i, err := model.FindFolder(s.Folders, a.FolderID)
		if err != nil {
			return err
		}
		selected := s.Folders[i].Clone()
		s.SelectedFolder = &selected

	case SetCurrentTab:
		s.CurrentTab = a.Tab

	case AddPrompt:
		i, err := model.FindFolder(s.Folders, a.FolderID)
		if err != nil {
			return err
		}
		f := &s.Folders[i]
		f.Prompts = append(f.Prompts, a.Prompt.Clone())
		f.UpdatedAt = nowFunc()

	case UpdatePrompt:
		i, err := model.FindFolder(s.Folders, a.FolderID)
		if err != nil {
			return err
		}
		f := &s.Folders[i]
		j, err := f.FindPrompt(a.Prompt.ID)
		if err != nil {
			return err
		}
		f.Prompts[j] = a.Prompt.Clone()
		f.UpdatedAt = nowFunc()

	case DeletePrompt:
		i, err := model.FindFolder(s.Folders, a.FolderID)
		if err != nil {
			return err
		}
		f := &s.Folders[i]
		j, err := f.FindPrompt(a.PromptID)
		if err != nil {
			return err
		}
		f.Prompts = append(f.Prompts[:j], f.Prompts[j+1:]...)
		f.UpdatedAt = nowFunc()

	case UpdateSettings:
		if err := a.Settings.Validate(); err != nil {
			return err
		}
		s.Settings = a.Settings

	case RestoreData:
		*s = a.State.Clone()

	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
	return nil
}

// selection re-derives the selected folder from folders by ID.
func selection(folders []model.Folder, selected *model.Folder) *model.Folder {
	if selected == nil {
		return nil
	}
	i := model.FolderIndex(folders, selected.ID)
	if i < 0 {
		return nil
	}
	f := folders[i].Clone()
	return &f
}
