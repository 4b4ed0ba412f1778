package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tsawler/go-imageset/scan"
	"github.com/tsawler/go-imageset/store"
)

// DefaultExtensions is the image extension allow-list, matched
// case-insensitively.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".ppm", ".bmp"}

// ErrNoImagesFound reports a build whose roots contained no class directory
// with any matching image at all. Fatal; no partial index is returned.
var ErrNoImagesFound = errors.New("dataset: no images found")

// EmptyClassError reports a discovered class with zero matching files. It is
// fatal for the build: an empty class directory signals a data-integrity
// problem the caller must resolve, not a condition to sample around.
type EmptyClassError struct {
	Class string
	Dirs  []string
}

func (e *EmptyClassError) Error() string {
	return fmt.Sprintf("dataset: class %q has no images in %s", e.Class, strings.Join(e.Dirs, ", "))
}

// Progress receives advisory build progress: classes scanned so far out of
// the total, and paths materialized so far. It must not block for long and
// has no effect on the build result.
type Progress func(classesDone, classesTotal, paths int)

// Config controls one index build.
type Config struct {
	// Roots are the dataset root directories. A class name appearing under
	// several roots is one class whose directories are unioned.
	Roots []string

	// Extensions overrides DefaultExtensions when non-empty.
	Extensions []string

	// ExcludeFiles is an optional glob matched against file base names.
	ExcludeFiles string

	// ExcludeDirs is an optional glob matched against directory paths.
	ExcludeDirs string

	// Less orders class names and thereby fixes class-index assignment.
	// Nil means lexicographic. The comparator must be deterministic or
	// reproducibility across runs is lost.
	Less func(a, b string) bool

	// Enumerator performs the bulk per-class file scan. Nil means a native
	// scan.Walker. Large deployments plug in scan.FindTool or their own.
	Enumerator scan.Enumerator

	// Progress, when non-nil, is called once after each class is scanned.
	Progress Progress
}

// Build scans cfg.Roots once and returns the immutable catalog and path
// store. It is single-threaded and must not be invoked concurrently with
// itself; the result is safe to share between any number of readers. All
// scratch state is local and released when Build returns, on success or
// failure.
func Build(cfg Config) (*ClassCatalog, *store.PathStore, error) {
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("dataset: no roots configured")
	}

	// Discover classes: immediate non-hidden subdirectories, unioned by name
	// across roots.
	dirsByName := map[string][]string{}
	for _, root := range cfg.Roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset: listing root %s: %w", root, err)
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			dirsByName[e.Name()] = append(dirsByName[e.Name()], filepath.Join(root, e.Name()))
		}
	}
	if len(dirsByName) == 0 {
		return nil, nil, ErrNoImagesFound
	}

	names := make([]string, 0, len(dirsByName))
	for name := range dirsByName {
		names = append(names, name)
	}
	if cfg.Less != nil {
		sort.SliceStable(names, func(i, j int) bool { return cfg.Less(names[i], names[j]) })
	} else {
		sort.Strings(names)
	}

	cat := &ClassCatalog{
		names: names,
		index: make(map[string]int, len(names)),
		dirs:  make([][]string, len(names)),
	}
	for i, name := range names {
		cat.index[name] = i
		cat.dirs[i] = dirsByName[name]
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	filter := scan.Filter{
		Extensions:  make(map[string]struct{}, len(exts)),
		ExcludeFile: cfg.ExcludeFiles,
		ExcludeDir:  cfg.ExcludeDirs,
	}
	for _, ext := range exts {
		filter.Extensions[strings.ToLower(ext)] = struct{}{}
	}

	enum := cfg.Enumerator
	if enum == nil {
		enum = &scan.Walker{}
	}

	// Enumerate every class in catalog order so the store ends up grouped by
	// ascending class index.
	perClass := make([][]string, len(names))
	total := 0
	for c := range names {
		for _, dir := range cat.dirs[c] {
			err := enum.Enumerate(dir, filter, func(batch []string) error {
				perClass[c] = append(perClass[c], batch...)
				return nil
			})
			if err != nil {
				return nil, nil, fmt.Errorf("dataset: scanning %s: %w", dir, err)
			}
		}
		total += len(perClass[c])
		if cfg.Progress != nil {
			cfg.Progress(c+1, len(names), total)
		}
	}

	if total == 0 {
		return nil, nil, ErrNoImagesFound
	}
	for c, paths := range perClass {
		if len(paths) == 0 {
			return nil, nil, &EmptyClassError{Class: names[c], Dirs: cat.dirs[c]}
		}
	}

	ps, err := store.New(perClass)
	if err != nil {
		return nil, nil, err
	}
	return cat, ps, nil
}
