// Package filter decides which directory entries are left out of a comparison.
package filter

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/common"
)

// Filter excludes entries by relative path. Exclusion applies to both trees
// alike, so an excluded name never shows up as one-sided.
// A nil *Filter excludes nothing.
type Filter struct {
	patterns   []string
	ignoreFile string
	matchers   []*ignore.GitIgnore
}

// New validates glob patterns and returns a filter without ignore files loaded.
// Patterns use doublestar syntax and are matched against the slash separated
// path relative to the compared roots, e.g. "**/*.tmp" or "cache/**".
func New(patterns []string, ignoreFile string) (*Filter, error) {
	clean := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.TrimPrefix(filepath.ToSlash(p), "/")
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: bad exclude pattern %q: %w", common.ErrInvalidInput, p, doublestar.ErrBadPattern)
		}
		clean = append(clean, p)
	}
	if strings.ContainsAny(ignoreFile, `/\`) {
		return nil, fmt.Errorf("%w: ignore file %q must be a plain file name", common.ErrInvalidInput, ignoreFile)
	}
	return &Filter{patterns: clean, ignoreFile: ignoreFile}, nil
}

// LoadIgnoreFiles returns a copy of f that also applies the ignore file found
// at the top of each root. Roots without the file contribute nothing.
func (f *Filter) LoadIgnoreFiles(roots ...string) (*Filter, error) {
	if f == nil {
		return nil, nil
	}
	loaded := &Filter{patterns: f.patterns, ignoreFile: f.ignoreFile}
	if f.ignoreFile == "" {
		return loaded, nil
	}
	for _, root := range roots {
		file := filepath.Join(root, f.ignoreFile)
		matcher, err := ignore.CompileIgnoreFile(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%w: ignore file %s: %w", common.ErrInvalidInput, file, err)
		}
		loaded.matchers = append(loaded.matchers, matcher)
	}
	return loaded, nil
}

// Patterns returns the validated glob patterns.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	return f.patterns
}

// Empty reports whether the filter can exclude anything.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.patterns) == 0 && len(f.matchers) == 0)
}

// Excluded reports whether the entry at relPath is left out. isDir lets
// directory-only ignore rules such as "build/" apply.
func (f *Filter) Excluded(relPath string, isDir bool) bool {
	if f.Empty() {
		return false
	}
	relPath = strings.TrimPrefix(path.Clean(filepath.ToSlash(relPath)), "/")

	// The ignore file configures the comparison and is not part of it.
	if len(f.matchers) > 0 && relPath == f.ignoreFile {
		return true
	}

	for _, p := range f.patterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
	}
	for _, m := range f.matchers {
		if m.MatchesPath(relPath) || (isDir && m.MatchesPath(relPath+"/")) {
			return true
		}
	}
	return false
}
