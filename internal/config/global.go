package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// GlobalConfigDir is the name of the global config directory in home
	GlobalConfigDir = ".raztodo"

	// GlobalConfigFileName is the name of the global config file
	GlobalConfigFileName = "config.toml"
)

// GlobalConfig represents the user-level configuration from ~/.raztodo/config.toml
type GlobalConfig struct {
	DatabaseName string
	DataDir      string
	LogLevel     string
}

// globalConfigFile represents the raw TOML structure for global config
type globalConfigFile struct {
	Database databaseConfig `toml:"database"`
	Log      logConfig      `toml:"log"`
}

// databaseConfig represents the [database] section in TOML
type databaseConfig struct {
	Name    string `toml:"name,omitempty"`
	DataDir string `toml:"data_dir,omitempty"`
}

// logConfig represents the [log] section in TOML
type logConfig struct {
	Level string `toml:"level,omitempty"`
}

// LoadGlobalConfig loads the global configuration from ~/.raztodo/config.toml.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return LoadGlobalConfigFromDir(homeDir)
}

// LoadGlobalConfigFromDir loads global config using the specified directory as home.
// This is useful for testing.
func LoadGlobalConfigFromDir(homeDir string) (*GlobalConfig, error) {
	configPath := filepath.Join(homeDir, GlobalConfigDir, GlobalConfigFileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &GlobalConfig{}, nil
	}

	var rawConfig globalConfigFile
	if _, err := toml.DecodeFile(configPath, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to parse global config TOML: %w", err)
	}

	if err := validateLogLevel(rawConfig.Log.Level); err != nil {
		return nil, err
	}

	return &GlobalConfig{
		DatabaseName: rawConfig.Database.Name,
		DataDir:      rawConfig.Database.DataDir,
		LogLevel:     rawConfig.Log.Level,
	}, nil
}
