package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/HartBrook/squeeze/internal/config"
)

// Fixture represents a test scenario loaded from YAML.
type Fixture struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Setup       FixtureSetup      `yaml:"setup"`
	Input       string            `yaml:"input"`
	Options     FixtureOptions    `yaml:"options"`
	Assertions  FixtureAssertions `yaml:"assertions"`
}

// FixtureSetup defines the test environment setup.
type FixtureSetup struct {
	Config *ConfigSetup      `yaml:"config"`
	Packs  map[string]string `yaml:"packs"` // pack name -> YAML pack content
}

// ConfigSetup defines the squeeze config.yaml content.
type ConfigSetup struct {
	Version   int      `yaml:"version"`
	Tokenizer string   `yaml:"tokenizer"`
	Packs     []string `yaml:"packs"`
}

// FixtureOptions mirrors the rule selection flags of compress.
type FixtureOptions struct {
	Packs     []string `yaml:"packs"`
	NoBuiltin bool     `yaml:"no_builtin"`
}

// FixtureAssertions defines what to verify.
type FixtureAssertions struct {
	Contains       []string `yaml:"contains"`
	NotContains    []string `yaml:"not_contains"`
	Applied        []string `yaml:"applied"`  // replacements that must be applied
	Rejected       []string `yaml:"rejected"` // replacements the floor guard must reject
	MinSaved       int      `yaml:"min_saved"`
	Degraded       bool     `yaml:"degraded"`
	Idempotent     bool     `yaml:"idempotent"`
	ExpandContains []string `yaml:"expand_contains"`
}

// LoadFixture loads a fixture from a YAML file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, err
	}

	if err := fixture.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture %s: %w", path, err)
	}

	return &fixture, nil
}

// Validate checks that the fixture has all required fields.
func (f *Fixture) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("missing required field: name")
	}
	if f.Input == "" {
		return fmt.Errorf("missing required field: input")
	}
	return nil
}

// LoadAllFixtures loads all fixtures from a directory.
func LoadAllFixtures(dir string) ([]*Fixture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var fixtures []*Fixture
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".yaml" && filepath.Ext(name) != ".yml" {
			continue
		}

		fixture, err := LoadFixture(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, fixture)
	}

	return fixtures, nil
}

// ToConfig converts fixture config setup to a config.Config.
func (c *ConfigSetup) ToConfig() *config.Config {
	cfg := &config.Config{Version: c.Version}
	cfg.Tokenizer.Strategy = c.Tokenizer
	cfg.Packs.Enabled = c.Packs
	return cfg
}

// ApplySetup applies the fixture setup to a test environment.
func ApplySetup(env *TestEnv, setup FixtureSetup) error {
	names := make([]string, 0, len(setup.Packs))
	for name := range setup.Packs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := env.SetupPack(name, setup.Packs[name]); err != nil {
			return err
		}
	}

	if setup.Config != nil {
		if err := env.SetupConfig(setup.Config.ToConfig()); err != nil {
			return err
		}
	}

	return nil
}
