package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the filesystem locations habitsync uses when the config does
// not say otherwise.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults resolves default paths. Each location is taken from the first
// source that is set:
//   - config file: HABITSYNC_CONFIG_PATH, $XDG_CONFIG_HOME/habitsync.toml, ~/.config/habitsync.toml
//   - data home:   HABITSYNC_HOME, $XDG_DATA_HOME/habitsync, ~/.local/share/habitsync
func GetDefaults() (Defaults, error) {
	configPath, err := resolvePath("HABITSYNC_CONFIG_PATH", "XDG_CONFIG_HOME", "habitsync.toml", ".config")
	if err != nil {
		return Defaults{}, err
	}

	baseDir, err := resolvePath("HABITSYNC_HOME", "XDG_DATA_HOME", "habitsync", ".local", "share")
	if err != nil {
		return Defaults{}, err
	}

	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// resolvePath returns the override env var verbatim, else name under the XDG
// directory, else name under homeSubdirs of the user's home.
func resolvePath(overrideEnv, xdgEnv, name string, homeSubdirs ...string) (string, error) {
	if path := os.Getenv(overrideEnv); path != "" {
		return path, nil
	}
	if dir := os.Getenv(xdgEnv); dir != "" {
		return filepath.Join(dir, name), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	parts := append([]string{homeDir}, homeSubdirs...)
	return filepath.Join(append(parts, name)...), nil
}
