package decode

import (
	"container/list"
	"fmt"
	"sync"
)

// Cache wraps a Decoder with an LRU cache of decoded rasters, keyed by path.
// Only successful decodes are cached, so a corrupt file is re-attempted every
// time it is drawn. Cached rasters are shared between callers and must be
// treated as read-only; the transform pipeline always copies before writing.
type Cache struct {
	dec Decoder

	mu      sync.Mutex
	entries map[string]*Raster
	lru     *list.List
	lruMap  map[string]*list.Element
	maxSize int

	hits   int64
	misses int64
}

// NewCache creates a cache holding at most maxSize decoded rasters.
func NewCache(dec Decoder, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Cache{
		dec:     dec,
		entries: make(map[string]*Raster),
		lru:     list.New(),
		lruMap:  make(map[string]*list.Element),
		maxSize: maxSize,
	}
}

// Decode implements Decoder.
func (c *Cache) Decode(path string) (*Raster, error) {
	c.mu.Lock()
	if r, ok := c.entries[path]; ok {
		if elem, ok := c.lruMap[path]; ok {
			c.lru.MoveToFront(elem)
		}
		c.hits++
		c.mu.Unlock()
		return r, nil
	}
	c.misses++
	c.mu.Unlock()

	r, err := c.dec.Decode(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; !ok {
		elem := c.lru.PushFront(path)
		c.lruMap[path] = elem
		c.entries[path] = r
		for len(c.entries) > c.maxSize && c.lru.Len() > 0 {
			oldest := c.lru.Back()
			key := oldest.Value.(string)
			c.lru.Remove(oldest)
			delete(c.lruMap, key)
			delete(c.entries, key)
		}
	}
	return r, nil
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

func (s CacheStats) String() string {
	total := s.Hits + s.Misses
	rate := 0.0
	if total > 0 {
		rate = float64(s.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("cache: %d entries, %d hits, %d misses (%.1f%% hit rate)",
		s.Entries, s.Hits, s.Misses, rate)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}

// Clear drops every cached raster and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Raster)
	c.lru = list.New()
	c.lruMap = make(map[string]*list.Element)
	c.hits, c.misses = 0, 0
}
