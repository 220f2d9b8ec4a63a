// Package config loads the sheetdiff YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatXLSX = "xlsx"
)

type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Output OutputConfig `yaml:"output"`
	Report ReportConfig `yaml:"report"`
	Log    LogConfig    `yaml:"log"`
}

type StoreConfig struct {
	Dir string `yaml:"dir"`
}

type OutputConfig struct {
	Format string `yaml:"format"`
	// Indent is the JSON indent; empty means compact.
	Indent string `yaml:"indent"`
}

type ReportConfig struct {
	Context       int `yaml:"context"`
	MaxPatchBytes int `yaml:"maxPatchBytes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Store:  StoreConfig{Dir: "tmp/.sheetdiff"},
		Output: OutputConfig{Format: FormatJSON, Indent: "  "},
		Report: ReportConfig{Context: 3, MaxPatchBytes: 64 << 10},
		Log:    LogConfig{Level: "info"},
	}
}

// DefaultPath is $HOME/.sheetdiff/sheetdiff.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".sheetdiff", "sheetdiff.yaml"), nil
}

// Load reads path, or DefaultPath when path is empty, over Default(). A
// missing default file yields the defaults; a missing explicit path is an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects unknown formats and levels and negative limits.
func (c Config) Validate() error {
	switch c.Output.Format {
	case FormatJSON, FormatText, FormatXLSX:
	default:
		return fmt.Errorf("output.format: unknown format %q", c.Output.Format)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Report.Context < 0 {
		return fmt.Errorf("report.context must not be negative")
	}
	if c.Report.MaxPatchBytes < 0 {
		return fmt.Errorf("report.maxPatchBytes must not be negative")
	}
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir must be set")
	}
	return nil
}

// SlogLevel returns the configured log level (info when unset or invalid).
func (c Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", s)
}
