package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config mirrors the common scan/gate flag names. Zero values mean "not set".
type Config struct {
	Workers   *int   `yaml:"workers,omitempty"`
	Verbose   *bool  `yaml:"verbose,omitempty"`
	ChecksDir string `yaml:"checks_dir,omitempty"`
	NoCustom  *bool  `yaml:"no_custom_checks,omitempty"`
	Profile   string `yaml:"profile,omitempty"`
	Policy    string `yaml:"policy,omitempty"`
	Waivers   string `yaml:"waivers,omitempty"`
	Baseline  string `yaml:"baseline,omitempty"`
	Artifact  string `yaml:"artifact,omitempty"`
	Format    string `yaml:"format,omitempty"`
}

// Load reads config from layered sources:
//  1. ~/.vibecheck/config.yaml (global)
//  2. <root>/.vibecheck/config.yaml (repo-local, takes precedence)
//
// Missing files are silently ignored. Returns zero Config if neither exists.
func Load(root string) (Config, error) {
	home, _ := os.UserHomeDir()
	var globalPath string
	if home != "" {
		globalPath = filepath.Join(home, ".vibecheck", "config.yaml")
	}
	localPath := filepath.Join(root, ".vibecheck", "config.yaml")

	var merged Config

	if globalPath != "" {
		global, err := loadFile(globalPath)
		if err != nil {
			return Config{}, fmt.Errorf("load global config %s: %w", globalPath, err)
		}
		merged = merge(merged, global)
	}

	local, err := loadFile(localPath)
	if err != nil {
		return Config{}, fmt.Errorf("load local config %s: %w", localPath, err)
	}
	merged = merge(merged, local)

	return merged, nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, err
	}
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return Config{}, nil
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// merge applies overrides from b onto a. Non-zero fields in b win.
func merge(a, b Config) Config {
	if b.Workers != nil {
		a.Workers = b.Workers
	}
	if b.Verbose != nil {
		a.Verbose = b.Verbose
	}
	if b.ChecksDir != "" {
		a.ChecksDir = b.ChecksDir
	}
	if b.NoCustom != nil {
		a.NoCustom = b.NoCustom
	}
	if b.Profile != "" {
		a.Profile = b.Profile
	}
	if b.Policy != "" {
		a.Policy = b.Policy
	}
	if b.Waivers != "" {
		a.Waivers = b.Waivers
	}
	if b.Baseline != "" {
		a.Baseline = b.Baseline
	}
	if b.Artifact != "" {
		a.Artifact = b.Artifact
	}
	if b.Format != "" {
		a.Format = b.Format
	}
	return a
}
