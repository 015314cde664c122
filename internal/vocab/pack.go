package vocab

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HartBrook/squeeze/internal/errors"
)

// packExtensions are tried in order when resolving a pack by name.
var packExtensions = []string{".json", ".yaml", ".yml"}

// packRecord is one entry in a pack file.
type packRecord struct {
	Pattern     string  `json:"pattern" yaml:"pattern"`
	Replacement string  `json:"replacement" yaml:"replacement"`
	Flags       *string `json:"flags,omitempty" yaml:"flags,omitempty"`
	Expansion   string  `json:"expansion,omitempty" yaml:"expansion,omitempty"`
	Origin      string  `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// LoadPack loads a pack from a file path, or by name from the first search
// directory holding <name>.json, <name>.yaml or <name>.yml.
func LoadPack(pathOrName string, searchDirs []string) (Source, error) {
	path, err := resolvePack(pathOrName, searchDirs)
	if err != nil {
		return Source{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, errors.PackInvalid(path, err)
	}
	return ParsePack(path, data)
}

func resolvePack(pathOrName string, searchDirs []string) (string, error) {
	if info, err := os.Stat(pathOrName); err == nil && !info.IsDir() {
		return pathOrName, nil
	}

	var searched []string
	for _, dir := range searchDirs {
		if dir == "" {
			continue
		}
		searched = append(searched, dir)
		for _, ext := range packExtensions {
			candidate := filepath.Join(dir, pathOrName+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", errors.PackNotFound(pathOrName, searched)
}

// ParsePack decodes pack data. The format follows the file extension of
// name: YAML for .yaml/.yml, JSON otherwise.
func ParsePack(name string, data []byte) (Source, error) {
	var records []packRecord
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		err = json.Unmarshal(data, &records)
	}
	if err != nil {
		return Source{}, errors.PackInvalid(name, err)
	}

	src := Source{Name: name}
	for i, rec := range records {
		flags := DefaultFlags
		if rec.Flags != nil {
			flags = *rec.Flags
		}

		rule, err := NewRule(rec.Pattern, rec.Replacement, flags)
		if err != nil {
			return Source{}, errors.RuleInvalid(name, rec.Pattern, err.Error())
		}
		origin, err := ParseOrigin(rec.Origin)
		if err != nil {
			return Source{}, errors.RuleInvalid(name, rec.Pattern, fmt.Sprintf("record %d: %v", i, err))
		}

		rule.Expansion = rec.Expansion
		rule.Origin = origin
		rule.Source = name
		src.Rules = append(src.Rules, rule)
	}
	return src, nil
}

// WritePack encodes rules in pack format to path, choosing JSON or YAML by extension.
func WritePack(path string, rules []Rule) error {
	records := make([]packRecord, 0, len(rules))
	for _, r := range rules {
		flags := r.Flags()
		rec := packRecord{
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
			Flags:       &flags,
			Expansion:   r.Expansion,
		}
		if r.Origin == OriginLearned {
			rec.Origin = OriginLearned.String()
		}
		records = append(records, rec)
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(records)
	default:
		data, err = json.MarshalIndent(records, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode pack: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create pack directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ListPacks returns the pack names available in dirs, sorted and deduplicated.
func ListPacks(dirs ...string) []string {
	set := make(map[string]bool)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			// Fetched packs sit next to <name>.meta.json sidecars.
			if entry.IsDir() || strings.HasSuffix(entry.Name(), ".meta.json") {
				continue
			}
			ext := filepath.Ext(entry.Name())
			for _, known := range packExtensions {
				if ext == known {
					set[strings.TrimSuffix(entry.Name(), ext)] = true
				}
			}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
