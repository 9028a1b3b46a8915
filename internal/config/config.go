// Package config loads the optional YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the YAML configuration file. Flags override these values.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

type EngineConfig struct {
	Path     string `yaml:"path"`
	PoolSize int    `yaml:"pool_size"`
	Threads  int    `yaml:"threads"`
	HashMB   int    `yaml:"hash_mb"`
}

type AnalysisConfig struct {
	Depth     int    `yaml:"depth"`
	EvalCache string `yaml:"eval_cache"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Engine:   EngineConfig{PoolSize: 2, Threads: 1, HashMB: 128},
		Analysis: AnalysisConfig{Depth: 16},
	}
}

// Load reads path over the defaults; keys absent from the file keep their
// default values. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
