package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nikbrunner/pm/internal/model"
)

// foldersDocument is the folders-only export shape.
type foldersDocument struct {
	Folders []model.Folder `json:"folders"`
}

// ExportState serializes the full application state as pretty-printed JSON.
func ExportState(state model.AppState) ([]byte, error) {
	state = state.Clone()
	state.Folders = model.NormalizeFolders(state.Folders)
	return json.MarshalIndent(state, "", "  ")
}

// ExportFolders serializes folders as a pretty-printed {"folders": [...]} document.
func ExportFolders(folders []model.Folder) ([]byte, error) {
	if folders == nil {
		folders = []model.Folder{}
	}
	return json.MarshalIndent(foldersDocument{Folders: folders}, "", "  ")
}

// BackupFileName returns the backup file name for the given day.
// Format: prompt-manager-backup-YYYY-MM-DD.json
func BackupFileName(t time.Time) string {
	return fmt.Sprintf("prompt-manager-backup-%s.json", t.Format("2006-01-02"))
}

// DefaultBackupPath returns the default export file path in ~/Downloads.
func DefaultBackupPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads", BackupFileName(time.Now())), nil
}
