// Package config loads the run configuration for panddamaps. A run is
// described either by a configuration file naming the analysis root and
// the files to leave untouched, or by the analysis root path alone.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RunConfig describes one processing run.
type RunConfig struct {
	// PanDDADir is the analysis root directory to process.
	PanDDADir string `yaml:"pandda_dir"`

	// ExcludedFiles lists map files the run must never touch, resolved
	// to absolute form at load time.
	ExcludedFiles []string `yaml:"excluded_files"`
}

// Load interprets the single CLI argument. Arguments with a recognized
// configuration-file extension are parsed as configuration (YAML is a
// superset of JSON, so .json configs from the original tooling load
// unchanged); anything else is treated directly as the analysis root
// with an empty exclusion list.
func Load(arg string) (*RunConfig, error) {
	switch filepath.Ext(arg) {
	case ".yaml", ".yml", ".json":
		return loadFile(arg)
	default:
		return &RunConfig{PanDDADir: arg}, nil
	}
}

func loadFile(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if cfg.PanDDADir == "" {
		return nil, fmt.Errorf("config file %s does not set pandda_dir", path)
	}

	for i, p := range cfg.ExcludedFiles {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("error resolving excluded file %q: %w", p, err)
		}
		cfg.ExcludedFiles[i] = abs
	}
	return cfg, nil
}
