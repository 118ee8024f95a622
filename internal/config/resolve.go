package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/raztodo/raztodo/internal/storage"
)

const (
	// AppName names the per-user data directory
	AppName = "raztodo"

	// DefaultDatabaseName is the database file used when nothing is configured
	DefaultDatabaseName = "tasks.db"

	// DefaultLogLevel keeps the CLI quiet unless asked otherwise
	DefaultLogLevel = "error"
)

// Overrides carries values from the environment or command-line flags.
// Empty fields are ignored.
type Overrides struct {
	DatabaseName string
	LogLevel     string
}

// ResolvedConfig represents the final merged configuration with all
// precedence rules applied. Precedence order (highest to lowest):
// 1. Overrides (flags and environment)
// 2. Project config (raztodo.toml)
// 3. Global config (~/.raztodo/config.toml)
// 4. Built-in defaults
type ResolvedConfig struct {
	DataDir      string
	DatabasePath string
	LogLevel     string
}

// ResolveConfig discovers the project config, loads the global config,
// and merges them with overrides according to precedence rules.
func ResolveConfig(overrides Overrides) (*ResolvedConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return ResolveConfigWithHome(homeDir, overrides)
}

// ResolveConfigWithHome resolves config using a specified home directory.
// This is useful for testing.
func ResolveConfigWithHome(homeDir string, overrides Overrides) (*ResolvedConfig, error) {
	projectCfg, err := DiscoverProjectConfig()
	if err != nil {
		return nil, err
	}

	globalCfg, err := LoadGlobalConfigFromDir(homeDir)
	if err != nil {
		return nil, err
	}

	resolved := &ResolvedConfig{
		DataDir:  DefaultDataDir(runtime.GOOS, homeDir, os.Getenv("APPDATA")),
		LogLevel: DefaultLogLevel,
	}
	name := DefaultDatabaseName
	base := ""

	// Apply global config
	if globalCfg.DataDir != "" {
		resolved.DataDir = globalCfg.DataDir
	}
	if globalCfg.DatabaseName != "" {
		name = globalCfg.DatabaseName
	}
	if globalCfg.LogLevel != "" {
		resolved.LogLevel = globalCfg.LogLevel
	}

	// Apply project config
	if projectCfg != nil {
		if projectCfg.DatabaseName != "" {
			name = projectCfg.DatabaseName
			base = projectCfg.Dir
		}
		if projectCfg.LogLevel != "" {
			resolved.LogLevel = projectCfg.LogLevel
		}
	}

	// Apply overrides
	if overrides.DatabaseName != "" {
		name = overrides.DatabaseName
		base = ""
	}
	if overrides.LogLevel != "" {
		resolved.LogLevel = overrides.LogLevel
	}

	if base == "" {
		base = resolved.DataDir
	}
	resolved.DatabasePath = DatabasePath(base, name)
	return resolved, nil
}

// DatabasePath joins a relative database name onto dir. Absolute names and
// the in-memory name are returned unchanged.
func DatabasePath(dir, name string) string {
	if name == storage.MemoryPath || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// DefaultDataDir returns the per-user data directory for the given OS.
func DefaultDataDir(goos, homeDir, appData string) string {
	switch goos {
	case "windows":
		if appData == "" {
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, AppName)
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", AppName)
	default:
		return filepath.Join(homeDir, ".local", "share", AppName)
	}
}
