// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reason

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianReason/services/reason/engine"
	"github.com/AleutianAI/AleutianReason/services/reason/telemetry"
)

// maxConfigFileSize caps config files to keep a stray path from
// ballooning memory.
const maxConfigFileSize = 1024 * 1024

// FileConfig is the on-disk YAML configuration for the CLI and server.
type FileConfig struct {
	// Port is the HTTP listen port for serve mode. Default: 8080.
	Port int `yaml:"port"`

	// LogLevel is debug, info, warn, or error. Default: info.
	LogLevel string `yaml:"log_level"`

	// LogDir enables file logging when set.
	LogDir string `yaml:"log_dir"`

	// Engine configures the fixpoint driver.
	Engine engine.Config `yaml:"engine"`

	// Telemetry configures tracing and metrics export.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// DefaultFileConfig returns the defaults used when no config file is
// given.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Port:      8080,
		LogLevel:  "info",
		Engine:    engine.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
	}
}

// LoadFileConfig reads and validates a YAML config file. Missing keys
// keep their defaults.
func LoadFileConfig(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()

	info, err := os.Stat(path)
	if err != nil {
		return cfg, fmt.Errorf("config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return cfg, fmt.Errorf("%w: %s is %d bytes", ErrConfigTooLarge, path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port %d in %s", cfg.Port, path)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
