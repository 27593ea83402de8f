// ABOUTME: XDG-based data and config directory resolution.
// ABOUTME: Checks XDG_DATA_HOME / XDG_CONFIG_HOME, falls back to ~/.local/share/tickertape and ~/.config/tickertape.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDataDir returns where the sqlite session index and JSONL trace
// archives live. XDG_DATA_HOME wins, then ~/.local/share/tickertape.
func DefaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tickertape"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	// Same layout as other XDG-aware tools when the variable is unset.
	return filepath.Join(home, ".local", "share", "tickertape"), nil
}

// DefaultConfigDir returns where config.yaml is looked up. XDG_CONFIG_HOME
// wins, then ~/.config/tickertape.
func DefaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tickertape"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".config", "tickertape"), nil
}
