package infra

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	AppName = "cryptoverse"
)

// GetWorkspaceDir returns the root directory for all runtime data.
// It prioritizes a local "_workspace" directory if it exists (Portable/Dev mode).
// Otherwise, it returns the OS-standard data directory.
func GetWorkspaceDir() string {
	// 1. Check for local workspace (Priority 1: Portable/Dev)
	localDir := "_workspace"
	if _, err := os.Stat(localDir); err == nil {
		return localDir
	}

	// 2. Identify OS Standard Data Dir (Priority 2: Production)
	var baseDir string
	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			baseDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
	case "darwin":
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, "Library", "Application Support")
	case "linux":
		// XDG_DATA_HOME or ~/.local/share
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome != "" {
			baseDir = dataHome
		} else {
			home, _ := os.UserHomeDir()
			baseDir = filepath.Join(home, ".local", "share")
		}
	default:
		return localDir
	}

	return filepath.Join(baseDir, AppName)
}

// DefaultDBPath is where the durable key-value store lives unless configured.
func DefaultDBPath() string {
	return filepath.Join(GetWorkspaceDir(), "data", "cryptoverse.db")
}

// DefaultIconDir is where downloaded coin icons are stored.
func DefaultIconDir() string {
	return filepath.Join(GetWorkspaceDir(), "assets", "icons")
}

// EnsureDir creates the directory if it doesn't exist with safe permissions (0755).
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ResolveConfigPath attempts to find the config.yaml.
// Priority: 1. Current Dir, 2. OS Config Dir
func ResolveConfigPath() string {
	defaultPath := filepath.Join("configs", "config.yaml")

	// 1. Current working directory (standard)
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	// 2. OS Standard Config Dir
	configRoot, err := os.UserConfigDir()
	if err == nil {
		osPath := filepath.Join(configRoot, AppName, "config.yaml")
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}

	// Return default and let LoadConfigOrDefault handle the missing file
	return defaultPath
}
