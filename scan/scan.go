// Package scan provides bulk file enumeration for building dataset indexes.
// Enumerating tens of millions of files one stat call at a time is too slow,
// so implementations stream paths in batches and callers accumulate them.
package scan

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// DefaultBatchSize is the number of paths emitted per callback when an
// enumerator has no reason to pick another size.
const DefaultBatchSize = 4096

// Filter restricts which files an enumerator reports.
type Filter struct {
	// Extensions holds allowed file extensions, lowercase and including the
	// leading dot (".jpg"). Matching is case-insensitive. Empty means all
	// files match.
	Extensions map[string]struct{}

	// ExcludeFile is an optional glob matched against the file base name.
	ExcludeFile string

	// ExcludeDir is an optional glob matched against directory paths: a
	// directory is excluded when the glob matches its path or any
	// component-aligned suffix of it, so "*/skipdir" and "skipdir" both
	// exclude root/class/skipdir. Files anywhere under an excluded
	// directory are skipped, and native walkers prune the subtree entirely.
	ExcludeDir string
}

// MatchFile reports whether the file at path passes the filter. The path is
// split internally; callers pass the full file path.
func (f Filter) MatchFile(path string) bool {
	if len(f.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := f.Extensions[ext]; !ok {
			return false
		}
	}
	base := filepath.Base(path)
	if f.ExcludeFile != "" {
		if ok, _ := filepath.Match(f.ExcludeFile, base); ok {
			return false
		}
	}
	return !f.excludedDir(filepath.Dir(path))
}

// excludedDir reports whether dir or any of its ancestors matches
// ExcludeDir. Checking every ancestor keeps non-pruning enumerators like
// FindTool in agreement with Walker, which never descends past a match.
func (f Filter) excludedDir(dir string) bool {
	if f.ExcludeDir == "" {
		return false
	}
	for d := dir; ; {
		if matchDirGlob(f.ExcludeDir, d) {
			return true
		}
		parent := filepath.Dir(d)
		if parent == d {
			return false
		}
		d = parent
	}
}

// matchDirGlob reports whether pattern matches dir or any component-aligned
// suffix of it. filepath.Match anchors the pattern against the whole string
// and "*" never crosses a separator, so without the suffix walk a pattern
// like "*/skipdir" could never match an absolute path.
func matchDirGlob(pattern, dir string) bool {
	for {
		if ok, _ := filepath.Match(pattern, dir); ok {
			return true
		}
		i := strings.IndexRune(dir, filepath.Separator)
		if i < 0 {
			return false
		}
		dir = dir[i+1:]
	}
}

// Enumerator lists files under a directory tree in bulk. Implementations
// stream results through emit in batches; the slice passed to emit is only
// valid for the duration of the call. Returning an error from emit aborts
// the enumeration and propagates the error.
type Enumerator interface {
	Enumerate(dir string, filter Filter, emit func(batch []string) error) error
}

// Walker enumerates files with a native recursive directory walk. It is the
// default enumerator and is adequate up to a few million files per class;
// beyond that prefer FindTool.
type Walker struct {
	// BatchSize overrides DefaultBatchSize when positive.
	BatchSize int
}

// Enumerate implements Enumerator.
func (w *Walker) Enumerate(dir string, filter Filter, emit func(batch []string) error) error {
	size := w.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	batch := make([]string, 0, size)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && filter.excludedDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !filter.MatchFile(path) {
			return nil
		}
		batch = append(batch, path)
		if len(batch) == size {
			if err := emit(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(batch) > 0 {
		return emit(batch)
	}
	return nil
}
