// Package starter provides embedded starter rule packs that ship with squeeze.
package starter

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/HartBrook/squeeze/internal/vocab"
)

//go:embed packs/*.yaml
var packsFS embed.FS

// PackNames returns the names of the starter packs, without extension.
func PackNames() []string {
	entries, err := packsFS.ReadDir("packs")
	if err != nil {
		return nil
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && path.Ext(entry.Name()) == ".yaml" {
			names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
		}
	}
	return names
}

// GetPack returns the raw content of a starter pack by name.
func GetPack(name string) ([]byte, error) {
	return packsFS.ReadFile(path.Join("packs", name+".yaml"))
}

// LoadPack parses a starter pack by name.
func LoadPack(name string) (vocab.Source, error) {
	content, err := GetPack(name)
	if err != nil {
		return vocab.Source{}, err
	}
	src, err := vocab.ParsePack(name+".yaml", content)
	if err != nil {
		return vocab.Source{}, err
	}
	src.Name = name
	return src, nil
}

// BootstrapPacks copies starter packs to the target directory.
// It skips files that already exist. Returns the number of packs copied.
func BootstrapPacks(targetDir string) (int, error) {
	count, _, err := BootstrapPacksWithSkip(targetDir, nil)
	return count, err
}

// BootstrapPacksWithSkip copies starter packs to the target directory,
// skipping names in the skip list. Returns the count and names of installed packs.
func BootstrapPacksWithSkip(targetDir string, skip []string) (int, []string, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return 0, nil, fmt.Errorf("failed to create packs directory: %w", err)
	}

	skipSet := make(map[string]bool)
	for _, name := range skip {
		skipSet[name] = true
	}

	copied := 0
	var installed []string

	err := fs.WalkDir(packsFS, "packs", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := strings.TrimSuffix(d.Name(), ".yaml")
		if skipSet[name] {
			return nil
		}

		targetPath := filepath.Join(targetDir, d.Name())

		// Skip if file already exists
		if _, err := os.Stat(targetPath); err == nil {
			return nil
		}

		content, err := packsFS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		if err := os.WriteFile(targetPath, content, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", d.Name(), err)
		}

		copied++
		installed = append(installed, name)
		return nil
	})

	return copied, installed, err
}
