// Package integration provides integration testing utilities for squeeze.
package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HartBrook/squeeze/internal/cache"
	"github.com/HartBrook/squeeze/internal/codebook"
	"github.com/HartBrook/squeeze/internal/compress"
	"github.com/HartBrook/squeeze/internal/config"
	"github.com/HartBrook/squeeze/internal/tokens"
	"github.com/HartBrook/squeeze/internal/vocab"
)

// TestEnv provides an isolated test environment with overridden paths.
type TestEnv struct {
	t         *testing.T
	RootDir   string        // t.TempDir() root
	HomeDir   string        // Simulated $HOME
	ConfigDir string        // ~/.config/squeeze
	CacheDir  string        // ~/.cache/squeeze
	DataDir   string        // ~/.local/share/squeeze
	Paths     *config.Paths // Configured paths pointing to temp dirs
	Counter   tokens.Counter
}

// NewTestEnv creates an isolated test environment.
// All paths are configured to use temporary directories, and token counts
// come from the heuristic counter so results do not depend on a tokenizer table.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	rootDir := t.TempDir()
	homeDir := filepath.Join(rootDir, "home")
	configDir := filepath.Join(homeDir, ".config", "squeeze")
	cacheDir := filepath.Join(homeDir, ".cache", "squeeze")
	dataDir := filepath.Join(homeDir, ".local", "share", "squeeze")

	for _, dir := range []string{configDir, cacheDir, dataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	return &TestEnv{
		t:         t,
		RootDir:   rootDir,
		HomeDir:   homeDir,
		ConfigDir: configDir,
		CacheDir:  cacheDir,
		DataDir:   dataDir,
		Paths:     config.NewPathsWithOverrides(configDir, cacheDir, dataDir),
		Counter:   tokens.NewHeuristic(),
	}
}

// SetupConfig writes config.yaml.
func (e *TestEnv) SetupConfig(cfg *config.Config) error {
	return config.SaveTo(cfg, e.Paths.ConfigFile)
}

// LoadConfig reads config.yaml, or the defaults when none was written.
func (e *TestEnv) LoadConfig() (*config.Config, error) {
	return config.LoadOrDefault(e.Paths.ConfigFile)
}

// SetupPack writes a YAML pack to the packs directory.
func (e *TestEnv) SetupPack(name, content string) error {
	if err := os.MkdirAll(e.Paths.PacksDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.Paths.PacksDir, name+".yaml"), []byte(content), 0644)
}

// SetupCachedPack writes a pack to the fetched pack cache (simulates fetch).
func (e *TestEnv) SetupCachedPack(file, content, owner, repo string) error {
	meta := &cache.Metadata{Owner: owner, Repo: repo, Path: "packs/" + file}
	return cache.New(e.Paths).Write(file, content, meta)
}

// Table builds the rule table the way compress does: built-in rules, then
// the configured packs, then extra packs.
func (e *TestEnv) Table(opts FixtureOptions) (*vocab.Table, error) {
	cfg, err := e.LoadConfig()
	if err != nil {
		return nil, err
	}

	var sources []vocab.Source
	if !opts.NoBuiltin {
		sources = append(sources, vocab.Builtin())
	}
	seen := make(map[string]bool)
	for _, name := range append(append([]string{}, cfg.Packs.Enabled...), opts.Packs...) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		src, err := vocab.LoadPack(name, e.Paths.PackSearchDirs())
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return vocab.Build(sources...)
}

// Compress runs one document through the substitution engine.
func (e *TestEnv) Compress(input string, opts FixtureOptions) (*compress.Result, *vocab.Table, error) {
	table, err := e.Table(opts)
	if err != nil {
		return nil, nil, err
	}
	return compress.Compress(input, table, e.Counter), table, nil
}

// OpenCodebook opens the configured codebook with its configured thresholds
// and retention. A nil now uses the wall clock.
func (e *TestEnv) OpenCodebook(now func() time.Time) (*codebook.Codebook, error) {
	cfg, err := e.LoadConfig()
	if err != nil {
		return nil, err
	}
	cc := cfg.Codebook
	cb, err := codebook.Open(codebook.Options{
		Path: cc.StorePath(e.Paths),
		Thresholds: codebook.Thresholds{
			ValidateConfidence:  cc.ValidateConfidence,
			ValidateSamples:     cc.ValidateSamples,
			IntegrateConfidence: cc.IntegrateConfidence,
			IntegrateSamples:    cc.IntegrateSamples,
			IntegrateCycles:     cc.IntegrateCycles,
		},
		Retention: codebook.Retention{
			Cycles: cc.RetentionCycles,
			Window: cc.RetentionWindowDuration(),
		},
		Now: now,
	})
	if err != nil {
		return nil, err
	}
	e.t.Cleanup(func() { _ = cb.Close() })
	return cb, nil
}

// RunCycles compresses input n times, recording each pass in cb with outcome.
func (e *TestEnv) RunCycles(cb *codebook.Codebook, input string, opts FixtureOptions, n int, outcome codebook.Outcome) error {
	for i := 0; i < n; i++ {
		res, _, err := e.Compress(input, opts)
		if err != nil {
			return err
		}
		if _, err := cb.RecordResult(res, outcome); err != nil {
			return err
		}
	}
	return nil
}
