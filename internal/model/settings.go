package model

import "fmt"

// Theme values accepted by Settings.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Bounds for Settings.AutoSyncInterval, in minutes.
const (
	MinSyncInterval = 1
	MaxSyncInterval = 60
)

// Settings holds user preferences.
type Settings struct {
	Theme            string `json:"theme"`
	Language         string `json:"language"`
	AutoSave         bool   `json:"autoSave"`
	AutoSyncInterval int    `json:"autoSyncInterval"` // minutes
}

// DefaultSettings returns the default user preferences.
func DefaultSettings() Settings {
	return Settings{
		Theme:            ThemeSystem,
		Language:         "zh-CN",
		AutoSave:         true,
		AutoSyncInterval: 5,
	}
}

// Validate checks the theme and sync interval.
func (s Settings) Validate() error {
	switch s.Theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return fmt.Errorf("%w: unknown theme %q", ErrInvalidSettings, s.Theme)
	}
	if s.AutoSyncInterval < MinSyncInterval || s.AutoSyncInterval > MaxSyncInterval {
		return fmt.Errorf("%w: autoSyncInterval %d outside [%d,%d]",
			ErrInvalidSettings, s.AutoSyncInterval, MinSyncInterval, MaxSyncInterval)
	}
	return nil
}
