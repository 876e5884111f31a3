// Package paths provides centralized path resolution for tabdeck's config and state files.
//
// Layout (XDG-style):
//
//	Config:  ~/.config/tabdeck/config.yaml   (override: TABDECK_CONFIG_DIR)
//	State:   ~/.local/state/tabdeck/         (override: TABDECK_STATE_DIR)
//	Runtime: /tmp/tabdeck-*                  (unchanged)
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	configDirOnce   sync.Once
	configDirCached string

	stateDirOnce   sync.Once
	stateDirCached string
)

func resolveDir(envVar string, fallback ...string) string {
	if env := os.Getenv(envVar); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// ConfigDir resolves the config directory.
// Priority: TABDECK_CONFIG_DIR env > ~/.config/tabdeck/
func ConfigDir() string {
	configDirOnce.Do(func() {
		configDirCached = resolveDir("TABDECK_CONFIG_DIR", ".config", "tabdeck")
	})
	return configDirCached
}

// StateDir resolves the state directory.
// Priority: TABDECK_STATE_DIR env > ~/.local/state/tabdeck/
func StateDir() string {
	stateDirOnce.Do(func() {
		stateDirCached = resolveDir("TABDECK_STATE_DIR", ".local", "state", "tabdeck")
	})
	return stateDirCached
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StatePath returns the full path to a state file (e.g. "names.json").
func StatePath(filename string) string {
	return filepath.Join(StateDir(), filename)
}

// EnsureConfigDir creates the config directory if it doesn't exist and returns its path.
func EnsureConfigDir() (string, error) {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", dir, err)
	}
	return dir, nil
}

// EnsureStateDir creates the state directory if it doesn't exist and returns its path.
func EnsureStateDir() (string, error) {
	dir := StateDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create state dir %s: %w", dir, err)
	}
	return dir, nil
}

// ResetForTest clears cached values so tests can re-run resolution logic.
// Only use in tests.
func ResetForTest() {
	configDirOnce = sync.Once{}
	configDirCached = ""
	stateDirOnce = sync.Once{}
	stateDirCached = ""
}
