// Package config loads and persists shellbot configuration.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths contains the standard paths for shellbot data.
type Paths struct {
	Data   string // ~/.local/share/shellbot
	Config string // ~/.config/shellbot
	Cache  string // ~/.cache/shellbot
	State  string // ~/.local/state/shellbot
}

// GetPaths returns the standard paths for shellbot data.
func GetPaths() *Paths {
	return &Paths{
		Data:   filepath.Join(getEnvOrDefault("XDG_DATA_HOME", defaultDataHome()), "shellbot"),
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", defaultConfigHome()), "shellbot"),
		Cache:  filepath.Join(getEnvOrDefault("XDG_CACHE_HOME", defaultCacheHome()), "shellbot"),
		State:  filepath.Join(getEnvOrDefault("XDG_STATE_HOME", defaultStateHome()), "shellbot"),
	}
}

// EnsurePaths creates all required directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config, p.Cache, p.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// AuditPath returns the directory the decision audit log writes to.
func (p *Paths) AuditPath() string {
	return filepath.Join(p.Data, "audit")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultDataHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share")
}

func defaultConfigHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

func defaultCacheHome() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "cache")
	}
	return filepath.Join(os.Getenv("HOME"), ".cache")
}

func defaultStateHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state")
}

// GlobalConfigPath returns the path new configuration is written to when no
// existing file was loaded.
func GlobalConfigPath() string {
	return filepath.Join(GetPaths().Config, "shellbot.json")
}

// ProjectConfigDir returns the project-local configuration directory.
func ProjectConfigDir(directory string) string {
	return filepath.Join(directory, ".shellbot")
}
