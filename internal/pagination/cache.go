package pagination

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// CountCache stores recent COUNT(*) results so repeated listings of the
// same data set skip the count query. Implementations must be safe for
// concurrent use.
type CountCache interface {
	Get(key string) (int64, bool)
	Put(key string, total int64, ttl time.Duration)
	// ClearPattern drops every entry whose key contains pattern and
	// returns the number removed. An empty pattern clears everything.
	ClearPattern(pattern string) int
	Stats() CacheStats
}

// CacheStats exposes hit-ratio diagnostics for the count cache.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Entries int     `json:"entries"`
	HitRate float64 `json:"hit_rate"`
}

type cacheEntry struct {
	key       string
	total     int64
	expiresAt time.Time
}

// MemoryCountCache is a mutex-guarded LRU+TTL CountCache for
// single-process deployments. Multi-process deployments that need a
// consistent count across workers should back CountCache with a shared
// store instead.
type MemoryCountCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	hits     int64
	misses   int64
	now      func() time.Time
}

func NewMemoryCountCache(capacity int) *MemoryCountCache {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryCountCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *MemoryCountCache) Get(key string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return 0, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		c.misses++
		return 0, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return entry.total, true
}

func (c *MemoryCountCache) Put(key string, total int64, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.total = total
		entry.expiresAt = c.now().Add(ttl)
		c.order.MoveToFront(elem)
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}

	elem := c.order.PushFront(&cacheEntry{
		key:       key,
		total:     total,
		expiresAt: c.now().Add(ttl),
	})
	c.entries[key] = elem
}

func (c *MemoryCountCache) ClearPattern(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.entries {
		if pattern == "" || strings.Contains(key, pattern) {
			c.order.Remove(elem)
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *MemoryCountCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: len(c.entries),
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}
