package config

import (
	"os"
	"path/filepath"
	"strings"
)

// File permission constants for consistent file creation.
const (
	DefaultFileMode = 0644
	DefaultDirMode  = 0755
)

// Paths provides all squeeze-related filesystem paths.
type Paths struct {
	ConfigDir   string // ~/.config/squeeze
	CacheDir    string // ~/.cache/squeeze
	DataDir     string // ~/.local/share/squeeze
	ConfigFile  string // ~/.config/squeeze/config.yaml
	PacksDir    string // ~/.config/squeeze/packs (user and learned packs)
	CodebookDir string // ~/.local/share/squeeze/codebook
}

// NewPaths creates Paths using ~/.config, ~/.cache and ~/.local/share.
// We use these paths explicitly for cross-platform consistency rather than
// platform-specific defaults (like ~/Library/Application Support on macOS).
func NewPaths() *Paths {
	home := os.Getenv("HOME")
	return NewPathsWithOverrides(
		filepath.Join(home, ".config", "squeeze"),
		filepath.Join(home, ".cache", "squeeze"),
		filepath.Join(home, ".local", "share", "squeeze"),
	)
}

// NewPathsWithOverrides allows overriding directories for testing.
func NewPathsWithOverrides(configDir, cacheDir, dataDir string) *Paths {
	return &Paths{
		ConfigDir:   configDir,
		CacheDir:    cacheDir,
		DataDir:     dataDir,
		ConfigFile:  filepath.Join(configDir, "config.yaml"),
		PacksDir:    filepath.Join(configDir, "packs"),
		CodebookDir: filepath.Join(dataDir, "codebook"),
	}
}

// CachedPacksDir returns the directory holding packs fetched from GitHub.
func (p *Paths) CachedPacksDir() string {
	return filepath.Join(p.CacheDir, "packs")
}

// CachePackFile returns the cached copy of a fetched pack file.
func (p *Paths) CachePackFile(fileName string) string {
	return filepath.Join(p.CachedPacksDir(), fileName)
}

// CacheMetadataFile returns the path for a fetched pack's metadata sidecar.
func (p *Paths) CacheMetadataFile(name string) string {
	return filepath.Join(p.CachedPacksDir(), name+".meta.json")
}

// PackSearchDirs returns the directories a pack name is resolved in, user
// packs first.
func (p *Paths) PackSearchDirs() []string {
	return []string{p.PacksDir, p.CachedPacksDir()}
}

// ExpandHome replaces a leading ~ with $HOME.
func ExpandHome(path string) string {
	if path == "~" {
		return os.Getenv("HOME")
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(os.Getenv("HOME"), path[2:])
	}
	return path
}
