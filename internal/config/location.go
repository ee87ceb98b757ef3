package config

import (
	"os"
	"path/filepath"
)

// ConfigEnvVar overrides the configuration file location.
const ConfigEnvVar = "SKETCHCTL_CONFIG"

// GetConfigPath returns $SKETCHCTL_CONFIG when set, otherwise
// ~/.sketchctl/config.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(ConfigEnvVar); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".sketchctl", "config"), nil
}
