package state

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nikbrunner/pm/internal/model"
)

// envelope is the JSON form of an action: {"type": "...", "payload": ...}.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type renamePayload struct {
	FolderID string `json:"folderId"`
	Name     string `json:"name"`
}

type promptPayload struct {
	FolderID string       `json:"folderId"`
	Prompt   model.Prompt `json:"prompt"`
}

type deletePromptPayload struct {
	FolderID string `json:"folderId"`
	PromptID string `json:"promptId"`
}

// DecodeAction parses an action envelope.
// UPDATE_FOLDER payloads carrying "folderId" and "name" decode to RenameFolder,
// any other folder object to ReplaceFolder. SELECT_FOLDER takes a folder object or null.
func DecodeAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch env.Type {
	case TypeSetFolders:
		var folders []model.Folder
		if err := decodePayload(env, &folders); err != nil {
			return nil, err
		}
		return SetFolders{Folders: folders}, nil

	case TypeAddFolder:
		var folder model.Folder
		if err := decodePayload(env, &folder); err != nil {
			return nil, err
		}
		return AddFolder{Folder: folder}, nil

	case TypeUpdateFolder:
		var fields map[string]json.RawMessage
		if err := decodePayload(env, &fields); err != nil {
			return nil, err
		}
		_, hasID := fields["folderId"]
		_, hasName := fields["name"]
		if hasID && !hasName {
			return nil, fmt.Errorf("%w: %s: rename without name", ErrInvalidPayload, env.Type)
		}
		if hasID {
			var p renamePayload
			if err := decodePayload(env, &p); err != nil {
				return nil, err
			}
			return RenameFolder{FolderID: p.FolderID, Name: p.Name}, nil
		}
		var folder model.Folder
		if err := decodePayload(env, &folder); err != nil {
			return nil, err
		}
		return ReplaceFolder{Folder: folder}, nil

	case TypeDeleteFolder:
		var id string
		if err := decodePayload(env, &id); err != nil {
			return nil, err
		}
		return DeleteFolder{FolderID: id}, nil

	case TypeSelectFolder:
		if isNullPayload(env.Payload) {
			return SelectFolder{}, nil
		}
		var folder model.Folder
		if err := decodePayload(env, &folder); err != nil {
			return nil, err
		}
		return SelectFolder{FolderID: folder.ID}, nil

	case TypeSetCurrentTab:
		var tab string
		if err := decodePayload(env, &tab); err != nil {
			return nil, err
		}
		return SetCurrentTab{Tab: tab}, nil

	case TypeAddPrompt, TypeUpdatePrompt:
		var p promptPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		if env.Type == TypeAddPrompt {
			return AddPrompt{FolderID: p.FolderID, Prompt: p.Prompt}, nil
		}
		return UpdatePrompt{FolderID: p.FolderID, Prompt: p.Prompt}, nil

	case TypeDeletePrompt:
		var p deletePromptPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return DeletePrompt{FolderID: p.FolderID, PromptID: p.PromptID}, nil

	case TypeUpdateSettings:
		var settings model.Settings
		if err := decodePayload(env, &settings); err != nil {
			return nil, err
		}
		return UpdateSettings{Settings: settings}, nil

	case TypeRestoreData:
		s := model.NewAppState()
		if err := decodePayload(env, &s); err != nil {
			return nil, err
		}
		return RestoreData{State: s}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
}

// EncodeAction produces the envelope DecodeAction accepts.
func EncodeAction(a Action) ([]byte, error) {
	var payload any
	switch a := a.(type) {
	case SetFolders:
		payload = model.NormalizeFolders(model.CloneFolders(a.Folders))
	case AddFolder:
		payload = a.Folder
	case RenameFolder:
		payload = renamePayload{FolderID: a.FolderID, Name: a.Name}
	case ReplaceFolder:
		payload = a.Folder
	case DeleteFolder:
		payload = a.FolderID
	case SelectFolder:
		if a.FolderID != "" {
			payload = map[string]string{"id": a.FolderID}
		}
	case SetCurrentTab:
		payload = a.Tab
	case AddPrompt:
		payload = promptPayload{FolderID: a.FolderID, Prompt: a.Prompt}
	case UpdatePrompt:
		payload = promptPayload{FolderID: a.FolderID, Prompt: a.Prompt}
	case DeletePrompt:
		payload = deletePromptPayload{FolderID: a.FolderID, PromptID: a.PromptID}
	case UpdateSettings:
		payload = a.Settings
	case RestoreData:
		payload = a.State
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: a.Type(), Payload: raw})
}

func decodePayload(env envelope, v any) error {
	if len(env.Payload) == 0 || isNullPayload(env.Payload) {
		return fmt.Errorf("%w: %s: missing payload", ErrInvalidPayload, env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.Type, err)
	}
	return nil
}

func isNullPayload(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}
