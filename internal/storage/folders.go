package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nikbrunner/pm/internal/exporter"
	"github.com/nikbrunner/pm/internal/importer"
	"github.com/nikbrunner/pm/internal/model"
)

// FolderStore exposes folder and prompt CRUD over the persisted app data.
// Every mutation reads the full folder collection, modifies it and writes it
// back; a mutex serializes these read-modify-write cycles.
type FolderStore struct {
	store Storage
	mu    sync.Mutex
}

// NewFolderStore creates a FolderStore on top of the given storage.
func NewFolderStore(store Storage) *FolderStore {
	return &FolderStore{store: store}
}

// GetFolders returns all folders. Missing data yields an empty slice.
func (s *FolderStore) GetFolders(ctx context.Context) ([]model.Folder, error) {
	blob, err := s.readBlob(ctx)
	if err != nil {
		return nil, err
	}
	return decodeFolders(blob)
}

// SetFolders replaces the whole folder collection.
func (s *FolderStore) SetFolders(ctx context.Context, folders []model.Folder) error {
	return s.update(ctx, func([]model.Folder) ([]model.Folder, error) {
		return model.CloneFolders(folders), nil
	})
}

// AddFolder creates and appends a new folder with the given name.
func (s *FolderStore) AddFolder(ctx context.Context, name string) (model.Folder, error) {
	folder := model.NewFolder(model.NewFolderParams{Name: name})
	err := s.update(ctx, func(folders []model.Folder) ([]model.Folder, error) {
		return append(folders, folder), nil
	})
	if err != nil {
		return model.Folder{}, err
	}
	return folder, nil
}

// UpdateFolder renames a folder.
func (s *FolderStore) UpdateFolder(ctx context.Context, folderID, name string) error {
	return s.update(ctx, func(folders []model.Folder) ([]model.Folder, error) {
		i, err := model.FindFolder(folders, folderID)
		if err != nil {
			return nil, err
		}
		folders[i].Name = name
		folders[i].UpdatedAt = model.NowMillis()
		return folders, nil
	})
}

// DeleteFolder removes a folder together with its prompts.
func (s *FolderStore) DeleteFolder(ctx context.Context, folderID string) error {
	return s.update(ctx, func(folders []model.Folder) ([]model.Folder, error) {
		i, err := model.FindFolder(folders, folderID)
		if err != nil {
			return nil, err
		}
		return append(folders[:i], folders[i+1:]...), nil
	})
}

// AddPrompt appends a prompt to the folder.
func (s *FolderStore) AddPrompt(ctx context.Context, folderID string, prompt model.Prompt) error {
	return s.update(ctx, func(folders []model.Folder) ([]model.Folder, error) {
		i, err := model.FindFolder(folders, folderID)
		if err != nil {
			return nil, err
		}
		prompt.FolderID = folderID
		folders[i].Prompts = append(folders[i].Prompts, prompt.Clone())
		folders[i].UpdatedAt = model.NowMillis()
		return folders, nil
	})
}

// UpdatePrompt replaces the prompt with the same ID in prompt.FolderID.
func (s *FolderStore) UpdatePrompt(ctx context.Context, prompt model.Prompt) error {
	return s.update(ctx, func(folders []model.Folder) ([]model.Folder, error) {
		i, err := model.FindFolder(folders, prompt.FolderID)
		if err != nil {
			return nil, err
		}
		j, err := folders[i].FindPrompt(prompt.ID)
		if err != nil {
			return nil, err
		}
		folders[i].Prompts[j] = prompt.Clone()
		folders[i].UpdatedAt = model.NowMillis()
		return folders, nil
	})
}

// DeletePrompt removes a prompt from the folder.
func (s *FolderStore) DeletePrompt(ctx context.Context, folderID, promptID string) error {
	return s.update(ctx, func(folders []model.Folder) ([]model.Folder, error) {
		i, err := model.FindFolder(folders, folderID)
		if err != nil {
			return nil, err
		}
		j, err := folders[i].FindPrompt(promptID)
		if err != nil {
			return nil, err
		}
		prompts := folders[i].Prompts
		folders[i].Prompts = append(prompts[:j], prompts[j+1:]...)
		folders[i].UpdatedAt = model.NowMillis()
		return folders, nil
	})
}

// ExportData returns the folders as a pretty-printed {"folders": [...]} document.
func (s *FolderStore) ExportData(ctx context.Context) ([]byte, error) {
	folders, err := s.GetFolders(ctx)
	if err != nil {
		return nil, err
	}
	return exporter.ExportFolders(folders)
}

// ImportData validates a {"folders": [...]} document and replaces all folders.
// Nothing is written when validation fails.
func (s *FolderStore) ImportData(ctx context.Context, data []byte) error {
	folders, err := importer.ParseFolders(data)
	if err != nil {
		return err
	}
	return s.SetFolders(ctx, folders)
}

// update runs one serialized read-modify-write cycle.
func (s *FolderStore) update(ctx context.Context, fn func([]model.Folder) ([]model.Folder, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.readBlob(ctx)
	if err != nil {
		return err
	}
	folders, err := decodeFolders(blob)
	if err != nil {
		return err
	}

	folders, err = fn(folders)
	if err != nil {
		return err
	}

	return s.writeBlob(ctx, blob, folders)
}

// readBlob loads the app data object. Missing data yields a default state.
func (s *FolderStore) readBlob(ctx context.Context) (map[string]json.RawMessage, error) {
	data, err := s.store.Get(ctx, KeyAppData)
	if errors.Is(err, ErrNotFound) {
		data, err = json.Marshal(model.NewAppState())
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyAppData, err)
	}

	blob := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyAppData, err)
	}
	if blob == nil {
		blob = map[string]json.RawMessage{}
	}
	return blob, nil
}

// writeBlob stores folders into the app data object, keeping the stored
// selection pointing at the current copy of the selected folder.
func (s *FolderStore) writeBlob(ctx context.Context, blob map[string]json.RawMessage, folders []model.Folder) error {
	folders = model.NormalizeFolders(folders)

	raw, err := json.Marshal(folders)
	if err != nil {
		return err
	}
	blob["folders"] = raw

	selected := json.RawMessage("null")
	var current struct {
		ID string `json:"id"`
	}
	if v, ok := blob["selectedFolder"]; ok && json.Unmarshal(v, &current) == nil && current.ID != "" {
		if i := model.FolderIndex(folders, current.ID); i >= 0 {
			if selected, err = json.Marshal(folders[i]); err != nil {
				return err
			}
		}
	}
	blob["selectedFolder"] = selected

	data, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, KeyAppData, data); err != nil {
		return fmt.Errorf("write %s: %w", KeyAppData, err)
	}
	return nil
}

func decodeFolders(blob map[string]json.RawMessage) ([]model.Folder, error) {
	raw, ok := blob["folders"]
	if !ok {
		return []model.Folder{}, nil
	}
	var folders []model.Folder
	if err := json.Unmarshal(raw, &folders); err != nil {
		return nil, fmt.Errorf("decode folders: %w", err)
	}
	return model.NormalizeFolders(folders), nil
}
