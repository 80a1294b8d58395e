package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nikbrunner/pm/internal/model"
)

// ErrInvalidFormat is returned when an import document fails validation.
var ErrInvalidFormat = errors.New("invalid data format")

// Document is a validated import document. Only Folders is mandatory;
// nil fields were absent from the input.
type Document struct {
	Folders        []model.Folder
	SelectedFolder *model.Folder
	CurrentTab     *string
	Settings       *model.Settings
}

// ParseState parses a full-state (or folders-only) JSON document.
// It fails with ErrInvalidFormat unless "folders" exists and is an array.
func ParseState(data []byte) (*Document, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	folders, err := decodeFolders(raw)
	if err != nil {
		return nil, err
	}
	doc := &Document{Folders: folders}

	if v, ok := raw["selectedFolder"]; ok && !isNull(v) {
		var f model.Folder
		if err := json.Unmarshal(v, &f); err != nil {
			return nil, fmt.Errorf("%w: selectedFolder: %v", ErrInvalidFormat, err)
		}
		doc.SelectedFolder = &f
	}

	if v, ok := raw["currentTab"]; ok && !isNull(v) {
		var tab string
		if err := json.Unmarshal(v, &tab); err != nil {
			return nil, fmt.Errorf("%w: currentTab: %v", ErrInvalidFormat, err)
		}
		doc.CurrentTab = &tab
	}

	if v, ok := raw["settings"]; ok && !isNull(v) {
		// Missing fields keep their defaults
		settings := model.DefaultSettings()
		if err := json.Unmarshal(v, &settings); err != nil {
			return nil, fmt.Errorf("%w: settings: %v", ErrInvalidFormat, err)
		}
		if err := settings.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		doc.Settings = &settings
	}

	return doc, nil
}

// ParseFolders parses a {"folders": [...]} document.
func ParseFolders(data []byte) ([]model.Folder, error) {
	raw, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	return decodeFolders(raw)
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidFormat)
	}
	return raw, nil
}

func decodeFolders(raw map[string]json.RawMessage) ([]model.Folder, error) {
	v, ok := raw["folders"]
	if !ok {
		return nil, fmt.Errorf("%w: missing folders", ErrInvalidFormat)
	}
	if !isArray(v) {
		return nil, fmt.Errorf("%w: folders must be an array", ErrInvalidFormat)
	}

	var folders []model.Folder
	if err := json.Unmarshal(v, &folders); err != nil {
		return nil, fmt.Errorf("%w: folders: %v", ErrInvalidFormat, err)
	}
	return model.NormalizeFolders(folders), nil
}

func isArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
