package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceFiles is the expanded model and service file lists of one package root.
type SourceFiles struct {
	Models   []string
	Services []string
}

// ResolveSources expands the model and service patterns under root, removes
// excluded files and returns sorted absolute paths.
func (c *Config) ResolveSources(root string) (SourceFiles, error) {
	excluded := make(map[string]bool)
	for _, pattern := range c.Sources.Exclude {
		matches, err := expandGlob(anchor(root, pattern))
		if err != nil {
			continue
		}
		for _, match := range matches {
			excluded[match] = true
		}
	}

	models, err := c.resolvePattern(root, c.Sources.Models, excluded)
	if err != nil {
		return SourceFiles{}, err
	}
	services, err := c.resolvePattern(root, c.Sources.Services, excluded)
	if err != nil {
		return SourceFiles{}, err
	}
	return SourceFiles{Models: models, Services: services}, nil
}

func (c *Config) resolvePattern(root, pattern string, excluded map[string]bool) ([]string, error) {
	if pattern == "" {
		return nil, nil
	}
	matches, err := expandGlob(anchor(root, pattern))
	if err != nil {
		return nil, err
	}

	var files []string
	for _, match := range matches {
		if excluded[match] || !strings.EqualFold(filepath.Ext(match), ".js") {
			continue
		}
		abs, err := filepath.Abs(match)
		if err != nil {
			return nil, err
		}
		files = append(files, abs)
	}
	sort.Strings(files)
	return files, nil
}

// SourceDirs returns the fixed directory prefix of the model and service
// patterns under root, deduplicated, in pattern order.
func (c *Config) SourceDirs(root string) []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, pattern := range []string{c.Sources.Models, c.Sources.Services} {
		if pattern == "" {
			continue
		}
		dir := globBase(anchor(root, pattern))
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// globBase trims pattern to the last path element before the first glob
// metacharacter.
func globBase(pattern string) string {
	parts := strings.Split(pattern, string(filepath.Separator))
	for i, part := range parts {
		if strings.ContainsAny(part, "*?[") {
			return filepath.Clean(strings.Join(parts[:i], string(filepath.Separator)) + string(filepath.Separator))
		}
	}
	return filepath.Dir(pattern)
}

func anchor(root, pattern string) string {
	pattern = filepath.FromSlash(pattern)
	if filepath.IsAbs(pattern) {
		return pattern
	}
	return filepath.Join(root, pattern)
}

// expandGlob expands a glob pattern, handling ** for recursive matching
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return expandDoubleStarGlob(pattern)
	}
	return filepath.Glob(pattern)
}

// expandDoubleStarGlob handles ** patterns by walking the directory tree
func expandDoubleStarGlob(pattern string) ([]string, error) {
	parts := strings.SplitN(pattern, "**", 2)
	baseDir := filepath.Clean(parts[0])
	if baseDir == "" {
		baseDir = "."
	}
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))

	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		return nil, nil
	}

	var results []string
	err := filepath.WalkDir(baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if d.IsDir() {
			if d.Name() == "node_modules" && path != baseDir {
				return filepath.SkipDir
			}
			return nil
		}
		if suffix == "" {
			results = append(results, path)
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return nil
		}
		if matchSuffix(rel, suffix) {
			results = append(results, path)
		}
		return nil
	})
	return results, err
}

// matchSuffix checks if a path matches the part of a pattern after **
func matchSuffix(path, pattern string) bool {
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}

	// any number of leading directories may precede the pattern
	segments := strings.Split(path, string(filepath.Separator))
	for i := 1; i < len(segments); i++ {
		tail := filepath.Join(segments[i:]...)
		if matched, _ := filepath.Match(pattern, tail); matched {
			return true
		}
	}
	return false
}
