// Package config handles squeeze configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HartBrook/squeeze/internal/errors"
)

// TokenizerConfig selects the token counter.
type TokenizerConfig struct {
	Strategy string `yaml:"strategy"`           // auto, exact or heuristic
	Table    string `yaml:"table,omitempty"`    // JSON tokenizer table; wins over Encoding
	Encoding string `yaml:"encoding,omitempty"` // tiktoken encoding name
}

// PacksConfig contains rule pack settings.
type PacksConfig struct {
	Enabled []string `yaml:"enabled,omitempty"` // pack names loaded on every run
	Source  string   `yaml:"source,omitempty"`  // default GitHub repo for packs fetch
	TTL     string   `yaml:"ttl"`               // e.g., "24h"
}

// CodebookConfig contains codebook store and lifecycle settings.
// Zero numeric values fall back to the codebook's own defaults.
type CodebookConfig struct {
	Path                string  `yaml:"path,omitempty"`
	ValidateConfidence  float64 `yaml:"validate_confidence,omitempty"`
	ValidateSamples     int     `yaml:"validate_samples,omitempty"`
	IntegrateConfidence float64 `yaml:"integrate_confidence,omitempty"`
	IntegrateSamples    int     `yaml:"integrate_samples,omitempty"`
	IntegrateCycles     int     `yaml:"integrate_cycles,omitempty"`
	RetentionCycles     int     `yaml:"retention_cycles,omitempty"`
	RetentionWindow     string  `yaml:"retention_window,omitempty"` // e.g., "720h"
}

// Config represents the squeeze configuration file.
type Config struct {
	Version int `yaml:"version"`

	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Packs     PacksConfig     `yaml:"packs"`
	Codebook  CodebookConfig  `yaml:"codebook,omitempty"`

	// Trusted is a list of repos/orgs that don't require confirmation when
	// fetching packs.
	// Examples: "acme-corp" (trusts all repos from org), "user/repo" (specific repo)
	Trusted []string `yaml:"trusted,omitempty"`
}

// Default values.
const (
	DefaultVersion  = 1
	DefaultStrategy = "auto"
	DefaultEncoding = "cl100k_base"
	DefaultPackTTL  = "24h"
)

// Load reads and validates config from the default location.
func Load() (*Config, error) {
	paths := NewPaths()
	return LoadFrom(paths.ConfigFile)
}

// LoadOrDefault reads config from path, returning defaults when no file exists.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := LoadFrom(path)
	if errors.HasCode(err, errors.ErrConfigNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFrom reads and validates config from a specific path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(errors.ErrConfigInvalid, "failed to read config", "", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "failed to parse config YAML", "Check config syntax", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes config to the default location.
func Save(cfg *Config) error {
	paths := NewPaths()
	return SaveTo(cfg, paths.ConfigFile)
}

// SaveTo writes config to a specific path.
func SaveTo(cfg *Config, path string) error {
	cfg.applyDefaults()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, "failed to marshal config", "", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirMode); err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, "failed to create config directory", "", err)
	}

	return os.WriteFile(path, data, DefaultFileMode)
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Validate checks config for valid values.
func (c *Config) Validate() error {
	switch c.Tokenizer.Strategy {
	case "", "auto", "exact", "heuristic":
	default:
		return errors.ConfigInvalid("tokenizer.strategy must be auto, exact or heuristic")
	}

	if c.Packs.Source != "" {
		if _, _, err := ParseRepo(c.Packs.Source); err != nil {
			return errors.ConfigInvalid("invalid packs.source: " + err.Error())
		}
	}

	if c.Packs.TTL != "" {
		if _, err := time.ParseDuration(c.Packs.TTL); err != nil {
			return errors.ConfigInvalid("invalid packs.ttl format, use Go duration format (e.g., 24h)")
		}
	}

	for _, name := range c.Packs.Enabled {
		if strings.TrimSpace(name) == "" {
			return errors.ConfigInvalid("packs.enabled contains an empty name")
		}
	}

	cb := c.Codebook
	if cb.ValidateConfidence < 0 || cb.ValidateConfidence > 1 {
		return errors.ConfigInvalid("codebook.validate_confidence must be between 0 and 1")
	}
	if cb.IntegrateConfidence < 0 || cb.IntegrateConfidence > 1 {
		return errors.ConfigInvalid("codebook.integrate_confidence must be between 0 and 1")
	}
	if cb.ValidateSamples < 0 || cb.IntegrateSamples < 0 || cb.IntegrateCycles < 0 {
		return errors.ConfigInvalid("codebook sample and cycle counts cannot be negative")
	}
	if cb.RetentionWindow != "" {
		if _, err := time.ParseDuration(cb.RetentionWindow); err != nil {
			return errors.ConfigInvalid("invalid codebook.retention_window format, use Go duration format (e.g., 720h)")
		}
	}

	return nil
}

// applyDefaults sets default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = DefaultVersion
	}
	if c.Tokenizer.Strategy == "" {
		c.Tokenizer.Strategy = DefaultStrategy
	}
	if c.Tokenizer.Table == "" && c.Tokenizer.Encoding == "" {
		c.Tokenizer.Encoding = DefaultEncoding
	}
	if c.Packs.TTL == "" {
		c.Packs.TTL = DefaultPackTTL
	}
}

// TTLDuration returns the pack cache TTL as a time.Duration.
func (p *PacksConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(p.TTL)
	if err != nil {
		d, _ = time.ParseDuration(DefaultPackTTL)
	}
	return d
}

// RetentionWindowDuration returns the retention window, or zero when unset.
func (c *CodebookConfig) RetentionWindowDuration() time.Duration {
	if c.RetentionWindow == "" {
		return 0
	}
	d, err := time.ParseDuration(c.RetentionWindow)
	if err != nil {
		return 0
	}
	return d
}

// StorePath resolves where the codebook lives: the configured path with ~
// expanded, or the default codebook directory when unset.
func (c *CodebookConfig) StorePath(paths *Paths) string {
	if c.Path == "" {
		return paths.CodebookDir
	}
	return ExpandHome(c.Path)
}

// Exists checks if a config file exists at the default location.
func Exists() bool {
	paths := NewPaths()
	_, err := os.Stat(paths.ConfigFile)
	return err == nil
}

// IsTrustedSource checks if a repo is trusted according to this config.
// It checks both the user's trusted list and the default trusted sources.
func (c *Config) IsTrustedSource(repo string) bool {
	if IsTrusted(repo, c.Trusted) {
		return true
	}
	return IsTrusted(repo, DefaultTrustedSources)
}
