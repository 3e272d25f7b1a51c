package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - MOODOPS_CONFIG_PATH: config file location (default: ~/.config/moodops.toml)
//   - MOODOPS_HOME: base directory for moodops data (default: ~/.local/share/moodops)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"backup_dir":  filepath.Join(baseDir, "backups"),
	}, nil
}

// getConfigPath returns the config file path, checking MOODOPS_CONFIG_PATH env var first,
// then falling back to the default ~/.config/moodops.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("MOODOPS_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "moodops.toml"), nil
}

// getBaseDir returns the base directory for moodops data, checking MOODOPS_HOME env var first,
// then falling back to the XDG default ~/.local/share/moodops.
func getBaseDir() (string, error) {
	if path := os.Getenv("MOODOPS_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "moodops"), nil
}
