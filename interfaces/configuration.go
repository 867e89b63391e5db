package interfaces

import (
	"os"
	"path/filepath"
)

type ConfigurationSystem interface {
	LoadConfiguration() bool
	SaveConfiguration() bool
}

// ConfigDir returns the directory the application configuration file lives in.
// BMON_CONFIG_DIR overrides the per-user default.
func ConfigDir() (string, error) {
	if dir := os.Getenv("BMON_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bmon"), nil
}
