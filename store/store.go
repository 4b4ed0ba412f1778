// Package store holds the immutable path index produced by a dataset build:
// every file path in one fixed-stride buffer, a parallel label array, and the
// contiguous per-class ranges. Fixed-stride storage keeps the whole index in
// a handful of allocations, which matters when the path count is in the tens
// of millions.
package store

import (
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"
)

// PathStore is an append-once, read-many index of file paths and class
// labels. Paths are grouped so that each class occupies one contiguous
// ascending run. After construction a PathStore is immutable and safe for
// unsynchronized concurrent readers.
type PathStore struct {
	buf     []byte  // len(buf) == n*stride, each record NUL padded
	stride  int     // bytes per path record, max path length at build time
	labels  []int32 // labels[i] is the class index of path i
	offsets []int32 // len numClasses+1; class c spans [offsets[c], offsets[c+1])

	backing *mapping // non-nil when opened from a file
}

// New builds a PathStore from per-class path lists. perClass[c] holds every
// path of class c, in discovery order; class order in the output follows the
// slice order. Empty classes are the caller's problem and are rejected.
func New(perClass [][]string) (*PathStore, error) {
	n := 0
	stride := 0
	for c, paths := range perClass {
		if len(paths) == 0 {
			return nil, fmt.Errorf("store: class %d has no paths", c)
		}
		n += len(paths)
		for _, p := range paths {
			if len(p) > stride {
				stride = len(p)
			}
		}
	}
	if n == 0 {
		return nil, fmt.Errorf("store: no paths")
	}

	s := &PathStore{
		buf:     make([]byte, n*stride),
		stride:  stride,
		labels:  make([]int32, 0, n),
		offsets: make([]int32, 1, len(perClass)+1),
	}
	i := 0
	for c, paths := range perClass {
		for _, p := range paths {
			copy(s.buf[i*stride:(i+1)*stride], p)
			s.labels = append(s.labels, int32(c))
			i++
		}
		s.offsets = append(s.offsets, int32(i))
	}
	return s, nil
}

// Len returns the number of stored paths.
func (s *PathStore) Len() int { return len(s.labels) }

// Stride returns the record width in bytes.
func (s *PathStore) Stride() int { return s.stride }

// NumClasses returns the number of classes.
func (s *PathStore) NumClasses() int { return len(s.offsets) - 1 }

// Path returns the path at position i. The returned string is a copy; the
// underlying buffer is never exposed.
func (s *PathStore) Path(i int) string {
	rec := s.buf[i*s.stride : (i+1)*s.stride]
	return string(bytes.TrimRight(rec, "\x00"))
}

// Label returns the class index of the path at position i.
func (s *PathStore) Label(i int) int { return int(s.labels[i]) }

// ClassLen returns the number of paths belonging to class c.
func (s *PathStore) ClassLen(c int) int {
	return int(s.offsets[c+1] - s.offsets[c])
}

// ClassRange returns the half-open position range [start, end) of class c.
func (s *PathStore) ClassRange(c int) (start, end int) {
	return int(s.offsets[c]), int(s.offsets[c+1])
}

// ClassIndex returns the global position of the k-th path of class c.
func (s *PathStore) ClassIndex(c, k int) int {
	return int(s.offsets[c]) + k
}

// MemSize returns the number of bytes the index occupies.
func (s *PathStore) MemSize() uint64 {
	return uint64(len(s.buf)) + uint64(len(s.labels))*4 + uint64(len(s.offsets))*4
}

// String summarizes the store.
func (s *PathStore) String() string {
	return fmt.Sprintf("PathStore: %s paths, %d classes, stride %d (%s)",
		humanize.Comma(int64(s.Len())), s.NumClasses(), s.stride,
		humanize.Bytes(s.MemSize()))
}

// Close releases the file mapping behind a store opened with Open. It is a
// no-op for stores built in memory.
func (s *PathStore) Close() error {
	if s.backing == nil {
		return nil
	}
	m := s.backing
	s.backing = nil
	s.buf, s.labels, s.offsets = nil, nil, nil
	return m.close()
}
