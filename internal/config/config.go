// Package config holds the notedex configuration: the list of note roots
// scanned for markdown files. The value is constructed once by the CLI
// and passed down explicitly; nothing in here is global.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yml"

// Config is the notedex configuration.
type Config struct {
	Paths []string `yaml:"paths"`
}

// Path returns the config file path inside the notedex config directory.
func Path(configDir string) string {
	return filepath.Join(configDir, configFileName)
}

// Load reads the configuration from configDir. A missing or unparsable
// file yields the zero Config: the index remains usable for explicit
// adds and searches without any roots configured.
func Load(configDir string) Config {
	data, err := os.ReadFile(Path(configDir))
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// Save writes the configuration to configDir, creating it if needed.
func Save(cfg Config, configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(Path(configDir), data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
