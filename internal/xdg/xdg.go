// Package xdg provides XDG Base Directory paths for PromptDeck.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "promptdeck"

// ConfigDir returns the XDG config directory for promptdeck.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DataDir returns the XDG data directory for promptdeck.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".local", "share")
	}
	return filepath.Join(base, appName)
}

// PluginsDir returns the default directory scanned for plugin packages.
func PluginsDir() string {
	return filepath.Join(DataDir(), "plugins")
}
