package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Well-known keys.
const (
	KeyAppData           = "appData"
	KeyCachedPrompts     = "cachedPrompts"
	KeyPromptsLastUpdate = "promptsLastUpdate"
	KeyPromptsURL        = "promptsUrl"
)

// ErrNotFound is returned by Get when a key is absent.
var ErrNotFound = errors.New("key not found")

// Storage defines the key-value storage the application persists into.
// Values are JSON documents.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// JSONStorage implements Storage using a single JSON object file.
type JSONStorage struct {
	path string
	mu   sync.Mutex
}

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Get returns the raw JSON value stored under key.
func (s *JSONStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	value, ok := data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

// Set stores value under key, rewriting the whole file.
func (s *JSONStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(value) {
		return fmt.Errorf("set %s: value is not valid JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data[key] = json.RawMessage(value)
	return s.save(data)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *JSONStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.save(data)
}

// Close is a no-op for file storage.
func (s *JSONStorage) Close() error {
	return nil
}

// load reads the file. Returns an empty map if the file doesn't exist.
func (s *JSONStorage) load() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}

	data := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return data, nil
}

// save writes the file, creating the directory if it doesn't exist.
func (s *JSONStorage) save(data map[string]json.RawMessage) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, raw, 0644)
}

// DefaultDataPath returns the default JSON data path: ~/.config/pm/data.json
func DefaultDataPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "pm", "data.json"), nil
}

// OpenStorage opens the storage backend named by the config.
// With no backend configured it prefers SQLite if the database file exists,
// otherwise falls back to JSON.
func OpenStorage(cfg *Config) (Storage, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStorage(), nil
	case BackendSQLite:
		path, err := cfg.resolvePath(DefaultSQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStorage(path)
	case BackendJSON:
		path, err := cfg.resolvePath(DefaultDataPath)
		if err != nil {
			return nil, err
		}
		return NewJSONStorage(path), nil
	case "":
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	// An explicit data path picks its backend by extension.
	if cfg.DataPath != "" {
		if isSQLitePath(cfg.DataPath) {
			return NewSQLiteStorage(cfg.DataPath)
		}
		return NewJSONStorage(cfg.DataPath), nil
	}

	sqlitePath, err := DefaultSQLitePath()
	if err != nil {
		return nil, err
	}

	// If SQLite database exists, use it
	if _, err := os.Stat(sqlitePath); err == nil {
		return NewSQLiteStorage(sqlitePath)
	}

	jsonPath, err := DefaultDataPath()
	if err != nil {
		return nil, err
	}
	return NewJSONStorage(jsonPath), nil
}

func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}
