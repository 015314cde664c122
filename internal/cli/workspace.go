package cli

import (
	"io"
	"os"
	"strings"

	"github.com/HartBrook/squeeze/internal/codebook"
	"github.com/HartBrook/squeeze/internal/config"
	"github.com/HartBrook/squeeze/internal/errors"
	"github.com/HartBrook/squeeze/internal/starter"
	"github.com/HartBrook/squeeze/internal/tokens"
	"github.com/HartBrook/squeeze/internal/vocab"
)

// workspace is the configuration every command resolves before running.
type workspace struct {
	paths *config.Paths
	cfg   *config.Config
}

// loadWorkspace reads the user config, falling back to defaults when none exists.
func loadWorkspace() (*workspace, error) {
	paths := config.NewPaths()
	cfg, err := config.LoadOrDefault(paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	return &workspace{paths: paths, cfg: cfg}, nil
}

// counter builds the token counter. A non-empty strategy overrides the config.
func (w *workspace) counter(strategy string) (tokens.Counter, error) {
	if strategy == "" {
		strategy = w.cfg.Tokenizer.Strategy
	}
	s, err := tokens.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}

	sel := tokens.Select(tokens.Options{
		Strategy: s,
		Table:    config.ExpandHome(w.cfg.Tokenizer.Table),
		Encoding: w.cfg.Tokenizer.Encoding,
	})
	if sel.Fallback && s == tokens.StrategyExact {
		printWarning("%s", sel.Warning)
	}
	return sel.Counter, nil
}

// tableOptions selects which rules a command compresses with.
type tableOptions struct {
	packs     []string
	noBuiltin bool
	minStage  string
}

// packNames returns the configured packs followed by extra, without duplicates.
func (w *workspace) packNames(extra []string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range append(append([]string{}, w.cfg.Packs.Enabled...), extra...) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// table builds the rule table. Learned rules below opts.minStage are
// filtered out using the codebook.
func (w *workspace) table(opts tableOptions) (*vocab.Table, error) {
	var sources []vocab.Source
	if !opts.noBuiltin {
		sources = append(sources, vocab.Builtin())
	}
	for _, name := range w.packNames(opts.packs) {
		src, err := w.loadPack(name)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	table, err := vocab.Build(sources...)
	if err != nil {
		return nil, err
	}

	if opts.minStage == "" {
		return table, nil
	}
	stage, err := codebook.ParseStage(opts.minStage)
	if err != nil {
		return nil, err
	}
	if stage == codebook.StageProvisional {
		return table, nil
	}

	cb, err := w.openCodebook()
	if err != nil {
		return nil, err
	}
	defer cb.Close()

	gate, err := cb.Gate(stage)
	if err != nil {
		return nil, err
	}
	return table.Filter(gate), nil
}

// loadPack resolves a pack from the packs directory, then the fetched pack
// cache, then the embedded starter packs.
func (w *workspace) loadPack(name string) (vocab.Source, error) {
	src, err := vocab.LoadPack(name, w.paths.PackSearchDirs())
	if errors.HasCode(err, errors.ErrPackNotFound) {
		if starterSrc, serr := starter.LoadPack(name); serr == nil {
			return starterSrc, nil
		}
	}
	return src, err
}

// openCodebook opens the configured codebook store.
func (w *workspace) openCodebook() (*codebook.Codebook, error) {
	cfg := w.cfg.Codebook
	return codebook.Open(codebook.Options{
		Path: cfg.StorePath(w.paths),
		Thresholds: codebook.Thresholds{
			ValidateConfidence:  cfg.ValidateConfidence,
			ValidateSamples:     cfg.ValidateSamples,
			IntegrateConfidence: cfg.IntegrateConfidence,
			IntegrateSamples:    cfg.IntegrateSamples,
			IntegrateCycles:     cfg.IntegrateCycles,
		},
		Retention: codebook.Retention{
			Cycles: cfg.RetentionCycles,
			Window: cfg.RetentionWindowDuration(),
		},
	})
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// readInputs reads every path, or stdin when paths is empty.
func readInputs(paths []string, stdin io.Reader) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	texts := make([]string, len(paths))
	for i, p := range paths {
		text, err := readInput(p, stdin)
		if err != nil {
			return nil, err
		}
		texts[i] = text
	}
	return texts, nil
}
