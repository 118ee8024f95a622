package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// ConfigFileName is the name of the project configuration file
const ConfigFileName = "raztodo.toml"

// ProjectConfig represents the directory-level configuration from raztodo.toml.
// A relative database name is resolved against Dir.
type ProjectConfig struct {
	Dir          string
	DatabaseName string
	LogLevel     string
}

// projectConfigFile represents the raw TOML structure
type projectConfigFile struct {
	Database databaseConfig `toml:"database,omitempty"`
	Log      logConfig      `toml:"log,omitempty"`
}

// ErrConfigExists is returned by WriteProjectConfig when dir already has a raztodo.toml
var ErrConfigExists = errors.New(ConfigFileName + " already exists")

// WriteProjectConfig creates raztodo.toml in dir and returns its path.
// An empty database name defaults to DefaultDatabaseName.
func WriteProjectConfig(dir, databaseName, logLevel string) (string, error) {
	if databaseName == "" {
		databaseName = DefaultDatabaseName
	}
	if err := validateLogLevel(logLevel); err != nil {
		return "", err
	}

	path := filepath.Join(dir, ConfigFileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return path, ErrConfigExists
		}
		return path, fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	raw := projectConfigFile{
		Database: databaseConfig{Name: databaseName},
		Log:      logConfig{Level: logLevel},
	}
	if err := toml.NewEncoder(f).Encode(raw); err != nil {
		return path, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

// DiscoverProjectConfig finds and parses the raztodo.toml file by traversing
// up the directory tree from the current working directory. It returns nil
// without error when no file is found.
func DiscoverProjectConfig() (*ProjectConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	return discoverProjectConfigFrom(cwd)
}

// discoverProjectConfigFrom searches for raztodo.toml starting from the given directory
func discoverProjectConfigFrom(startDir string) (*ProjectConfig, error) {
	dir := startDir

	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return ParseProjectConfig(configPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// ParseProjectConfig parses the raztodo.toml file at the given path
func ParseProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig projectConfigFile
	if _, err := toml.Decode(string(data), &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	if rawConfig.Database.DataDir != "" {
		return nil, fmt.Errorf("%s: data_dir is only supported in the global config", path)
	}
	if err := validateLogLevel(rawConfig.Log.Level); err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory: %w", err)
	}

	return &ProjectConfig{
		Dir:          dir,
		DatabaseName: rawConfig.Database.Name,
		LogLevel:     rawConfig.Log.Level,
	}, nil
}

// validateLogLevel accepts an empty level or any level logrus understands
func validateLogLevel(level string) error {
	if level == "" {
		return nil
	}
	if _, err := logrus.ParseLevel(level); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	return nil
}
