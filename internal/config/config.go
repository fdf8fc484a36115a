// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

// Package config loads host configuration from a YAML file and command
// line flags, with flags taking precedence.
package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/promptdeck/promptdeck/internal/xdg"
)

// Config holds the plugin host configuration.
type Config struct {
	// PluginsDir is scanned for .ai packages and extracted plugin
	// directories at startup.
	PluginsDir string `koanf:"plugins-dir"`

	// PromptTimeout bounds each boundary call into plugin code.
	PromptTimeout time.Duration `koanf:"prompt-timeout"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log-format"`

	// MetricsAddr is the metrics/health HTTP listen address; empty
	// disables the observability server.
	MetricsAddr string `koanf:"metrics-addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PluginsDir:    xdg.PluginsDir(),
		PromptTimeout: 60 * time.Second,
		LogFormat:     "json",
		MetricsAddr:   "127.0.0.1:9200",
	}
}

// Validate checks configuration constraints.
func (c *Config) Validate() error {
	if c.PluginsDir == "" {
		return fmt.Errorf("plugins-dir is required")
	}
	if c.PromptTimeout <= 0 {
		return fmt.Errorf("prompt-timeout must be positive, got %s", c.PromptTimeout)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	return nil
}

// Load builds the configuration from defaults, then the YAML file at path
// (if non-empty), then the given flag set (flags that were changed win).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
