package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/HartBrook/squeeze/internal/config"
	"github.com/HartBrook/squeeze/internal/errors"
)

const metaSuffix = ".meta.json"

var packExtensions = []string{".json", ".yaml", ".yml"}

// Cache manages locally cached packs. Each pack file sits next to a
// metadata sidecar named after the pack.
type Cache struct {
	paths *config.Paths
}

// New creates a cache manager.
func New(paths *config.Paths) *Cache {
	return &Cache{paths: paths}
}

// Dir returns the directory cached packs live in.
func (c *Cache) Dir() string {
	return c.paths.CachedPacksDir()
}

// packFile finds the cached file for a pack name, whatever its extension.
func (c *Cache) packFile(name string) (string, bool) {
	for _, ext := range packExtensions {
		p := c.paths.CachePackFile(name + ext)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// Read returns cached content and metadata, or PACK_NOT_FOUND if not cached.
func (c *Cache) Read(name string) (content string, meta *Metadata, err error) {
	path, ok := c.packFile(name)
	if !ok {
		return "", nil, errors.PackNotFound(name, []string{c.Dir()})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	meta, err = c.GetMetadata(name)
	if err != nil {
		// Content without a usable sidecar still reads.
		meta = &Metadata{Name: name, File: filepath.Base(path), LastFetched: time.Now()}
	}
	return string(data), meta, nil
}

// Write stores a fetched pack file and its metadata. A cached copy of the
// same pack under another extension is replaced.
func (c *Cache) Write(file, content string, meta *Metadata) error {
	if err := os.MkdirAll(c.Dir(), config.DefaultDirMode); err != nil {
		return err
	}

	name := strings.TrimSuffix(file, filepath.Ext(file))
	if old, ok := c.packFile(name); ok && filepath.Base(old) != file {
		if err := os.Remove(old); err != nil {
			return fmt.Errorf("failed to replace cached pack: %w", err)
		}
	}

	if meta.LastFetched.IsZero() {
		meta.LastFetched = time.Now()
	}
	meta.Name = name
	meta.File = file

	if err := os.WriteFile(c.paths.CachePackFile(file), []byte(content), config.DefaultFileMode); err != nil {
		return err
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.paths.CacheMetadataFile(name), metaBytes, config.DefaultFileMode)
}

// Exists checks if a pack is cached.
func (c *Cache) Exists(name string) bool {
	_, ok := c.packFile(name)
	return ok
}

// Clear removes a cached pack and its sidecar.
// Returns nil even if files don't exist (idempotent operation).
func (c *Cache) Clear(name string) error {
	for _, ext := range packExtensions {
		if err := os.Remove(c.paths.CachePackFile(name + ext)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove cached pack: %w", err)
		}
	}
	if err := os.Remove(c.paths.CacheMetadataFile(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache metadata: %w", err)
	}
	return nil
}

// GetMetadata returns only the metadata without reading content.
func (c *Cache) GetMetadata(name string) (*Metadata, error) {
	metaBytes, err := os.ReadFile(c.paths.CacheMetadataFile(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.PackNotFound(name, []string{c.Dir()})
		}
		return nil, err
	}

	meta := &Metadata{}
	if err := json.Unmarshal(metaBytes, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// List returns metadata for every cached pack, sorted by name.
func (c *Cache) List() ([]*Metadata, error) {
	entries, err := os.ReadDir(c.Dir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*Metadata{}, nil
		}
		return nil, err
	}

	var metas []*Metadata
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, metaSuffix) {
			continue
		}
		packName := strings.TrimSuffix(name, metaSuffix)
		if !c.Exists(packName) {
			continue
		}
		meta, err := c.GetMetadata(packName)
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })
	return metas, nil
}

// Stale returns cached packs at or older than ttl.
func (c *Cache) Stale(ttl time.Duration) ([]*Metadata, error) {
	metas, err := c.List()
	if err != nil {
		return nil, err
	}
	var stale []*Metadata
	for _, m := range metas {
		if m.IsStale(ttl) {
			stale = append(stale, m)
		}
	}
	return stale, nil
}
