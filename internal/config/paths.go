package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".nvsview"

// DataDir returns the base data directory for nvsview.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to the TOML configuration file.
func ConfigPath() (string, error) {
	return dataPath("config.toml")
}

// KeybindingsPath returns the default path to the keybindings file.
func KeybindingsPath() (string, error) {
	return dataPath("keybindings.json")
}

// UILogPath returns the log file the terminal UI writes to.
func UILogPath() (string, error) {
	return dataPath("ui.log")
}

func dataPath(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
