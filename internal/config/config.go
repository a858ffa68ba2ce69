// Package config loads compiler settings from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wangbochao789/LazyCraft-sub002/pkg/compiler"
)

// Config holds the compiler settings a deployment may tune.
type Config struct {
	// AppID namespaces plan ids; a random id is used when empty.
	AppID string `yaml:"app_id"`
	// KeepResourceKinds are resource kinds kept even when no node uses them.
	KeepResourceKinds []string  `yaml:"keep_resource_kinds"`
	MaxDepth          int       `yaml:"max_depth"`
	Log               LogConfig `yaml:"log"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		KeepResourceKinds: append([]string(nil), compiler.DefaultKeepKinds...),
		MaxDepth:          compiler.DefaultMaxDepth,
		Log:               LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.MaxDepth <= 0 {
		return Config{}, fmt.Errorf("config %s: max_depth must be positive, got %d", path, cfg.MaxDepth)
	}
	return cfg, nil
}

// CompilerOptions turns the settings into converter options.
func (c Config) CompilerOptions() []compiler.Option {
	opts := []compiler.Option{
		compiler.WithKeepResourceKinds(c.KeepResourceKinds...),
		compiler.WithMaxDepth(c.MaxDepth),
	}
	if c.AppID != "" {
		opts = append(opts, compiler.WithAppID(c.AppID))
	}
	return opts
}
