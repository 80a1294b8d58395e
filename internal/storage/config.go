package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Storage backends selectable in Config.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// DefaultFeedURL is the built-in curated prompt feed.
const DefaultFeedURL = "https://raw.githubusercontent.com/wxy390182638/AIprompt_manager/master/popular-prompts.json"

// DefaultListenAddr is where `pm serve` binds by default.
const DefaultListenAddr = "127.0.0.1:7331"

// Config holds application configuration.
type Config struct {
	Backend    string `json:"backend"`  // "json", "sqlite", "memory" or "" (auto)
	DataPath   string `json:"dataPath"` // empty = backend default
	FeedURL    string `json:"feedUrl"`
	ListenAddr string `json:"listenAddr"`
	LogLevel   string `json:"logLevel"`
	LogJSON    bool   `json:"logJson"`
	LogFile    string `json:"logFile"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Backend:    "",
		FeedURL:    DefaultFeedURL,
		ListenAddr: DefaultListenAddr,
		LogLevel:   "info",
	}
}

// LoadConfig reads config from the JSON file.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			// Non-fatal: return defaults even if save fails
			_ = SaveConfig(path, &config)
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if config.FeedURL == "" {
		config.FeedURL = defaults.FeedURL
	}
	if config.ListenAddr == "" {
		config.ListenAddr = defaults.ListenAddr
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}

	return &config, nil
}

// SaveConfig writes config to the JSON file.
// Creates the directory if it doesn't exist.
func SaveConfig(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfigFilePath returns the default config path: ~/.config/pm/config.json
func DefaultConfigFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "pm", "config.json"), nil
}

// resolvePath returns DataPath, or the backend default when unset.
func (c *Config) resolvePath(fallback func() (string, error)) (string, error) {
	if c.DataPath != "" {
		return c.DataPath, nil
	}
	return fallback()
}
