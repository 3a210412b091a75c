// Package config loads the optional project configuration for the
// schema-filter CLI.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the configuration file looked up in
// the working directory when no explicit path is given.
const ConfigFileName = ".schema-filter.yaml"

// Config holds the CLI defaults. Command-line flags override every
// field.
type Config struct {
	// Targets are the audiences built by default.
	Targets []string `yaml:"targets"`
	// Strategy is "rebuild" or "document".
	Strategy string `yaml:"strategy"`
	// OutDir receives one schema file per target in all-targets mode.
	OutDir string `yaml:"out_dir"`
	// EntryPoints lists root fields ("Type.field") always treated as
	// exposed.
	EntryPoints []string `yaml:"entry_points"`
	// KeepEmptyRoots keeps field-less root types as placeholders.
	KeepEmptyRoots bool `yaml:"keep_empty_roots"`
	// ReachableImplementorsOnly restricts interface expansion to
	// implementors reached through exposed data flow.
	ReachableImplementorsOnly bool `yaml:"reachable_implementors_only"`
}

// ErrConfigNotFound is returned when no config file can be found.
var ErrConfigNotFound = errors.New("config file not found")

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{Strategy: "rebuild"}
}

// Load reads the configuration from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "rebuild"
	}
	return cfg, nil
}

// LoadDefault reads ConfigFileName from the working directory.
func LoadDefault() (*Config, error) {
	return Load(ConfigFileName)
}
