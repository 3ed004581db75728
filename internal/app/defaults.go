package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths are the locations vsync uses before a config file has been read.
type Paths struct {
	ConfigFile string
	BaseDir    string
	LogDir     string
}

// DefaultPaths resolves Paths from the environment, in order:
//
//	config file: $VSYNC_CONFIG_PATH, $XDG_CONFIG_HOME/vsync.toml, ~/.config/vsync.toml
//	base dir:    $VSYNC_HOME, $XDG_DATA_HOME/vsync, ~/.local/share/vsync
func DefaultPaths() (Paths, error) {
	configFile, err := firstPath("VSYNC_CONFIG_PATH", "XDG_CONFIG_HOME", "vsync.toml", ".config")
	if err != nil {
		return Paths{}, err
	}
	baseDir, err := firstPath("VSYNC_HOME", "XDG_DATA_HOME", "vsync", ".local", "share")
	if err != nil {
		return Paths{}, err
	}
	return Paths{
		ConfigFile: configFile,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// firstPath returns $own if set, else $xdg/name, else ~/<homeRel...>/name.
func firstPath(own, xdg, name string, homeRel ...string) (string, error) {
	if p := os.Getenv(own); p != "" {
		return p, nil
	}
	if dir := os.Getenv(xdg); dir != "" {
		return filepath.Join(dir, name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append(append([]string{home}, homeRel...), name)...), nil
}
