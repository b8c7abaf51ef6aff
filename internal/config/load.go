package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file looked up in the search paths.
	FileName = "hillshade.yaml"
	// EnvConfig names a config file, below --config in priority.
	EnvConfig = "RELIEF_CONFIG"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFile(); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// configFile picks the file Load reads. An explicit path is returned even
// when it does not exist so the error reaches the user.
func configFile() string {
	if path := explicitPath(); path != "" {
		return path
	}
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func explicitPath() string {
	if path := ConfigPath(); path != "" {
		return path
	}
	return os.Getenv(EnvConfig)
}

// SearchPaths lists where Load looks when no file is named: the working
// directory first, then ConfigDir.
func SearchPaths() []string {
	return []string{
		FileName,
		filepath.Join(ConfigDir(), FileName),
	}
}

// SavePath is where Save writes: the file named by --config or
// $RELIEF_CONFIG, else FileName in ConfigDir.
func SavePath() string {
	if path := explicitPath(); path != "" {
		return path
	}
	return filepath.Join(ConfigDir(), FileName)
}

// ConfigDir returns the per-user relief config directory
// (XDG_CONFIG_HOME, Application Support or APPDATA).
func ConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "relief")
	}
	return filepath.Join(dir, "relief")
}

// loadFromFile merges a YAML file over the existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
