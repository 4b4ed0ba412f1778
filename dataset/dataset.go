// Package dataset builds a class-balanced sample index from directory-encoded
// image datasets laid out as root/class_name/image_file. The build scans one
// or more roots, fixes a reproducible class ordering, and materializes every
// path into an immutable store.PathStore.
package dataset

import (
	"fmt"
	"strings"

	"github.com/tsawler/go-imageset/store"
)

// ClassCatalog is the sorted, deduplicated class table: canonical class
// ordering, name lookup, and the directories that contributed each class.
// It is immutable after Build except for the optional info attachment.
type ClassCatalog struct {
	names []string
	index map[string]int
	dirs  [][]string

	info map[string]any
}

// NumClasses returns the number of classes.
func (c *ClassCatalog) NumClasses() int { return len(c.names) }

// Name returns the class name at index i.
func (c *ClassCatalog) Name(i int) string { return c.names[i] }

// Names returns the canonical class ordering. The slice is shared; callers
// must not modify it.
func (c *ClassCatalog) Names() []string { return c.names }

// Index returns the class index for a name.
func (c *ClassCatalog) Index(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

// Dirs returns the directories across all roots that matched class i.
func (c *ClassCatalog) Dirs(i int) []string { return c.dirs[i] }

// AttachInfo attaches a precomputed class-information artifact, for example
// human-readable descriptions loaded with LoadClassInfo. The contents are
// pass-through; the catalog does not interpret them.
func (c *ClassCatalog) AttachInfo(info map[string]any) { c.info = info }

// Info returns the attached artifact value for a class name, if any.
func (c *ClassCatalog) Info(name string) (any, bool) {
	v, ok := c.info[name]
	return v, ok
}

// Distribution returns the per-class sample counts of a store built together
// with this catalog.
func (c *ClassCatalog) Distribution(s *store.PathStore) map[string]int {
	dist := make(map[string]int, len(c.names))
	for i, name := range c.names {
		dist[name] = s.ClassLen(i)
	}
	return dist
}

// String summarizes the catalog.
func (c *ClassCatalog) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ClassCatalog: %d classes\n", len(c.names))
	for i, name := range c.names {
		fmt.Fprintf(&sb, "  %3d %s (%d dirs)\n", i, name, len(c.dirs[i]))
	}
	return sb.String()
}
