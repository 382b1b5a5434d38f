package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mikey/phish-screen/internal/core"
	"go.uber.org/zap"
)

// MemoryCache is an in-memory implementation of the CacheRepository interface.
// Entries expire after a fixed TTL and the least recently used entry is evicted
// once the cache is full.
type MemoryCache struct {
	lru    *expirable.LRU[string, *core.CacheEntry]
	logger *zap.Logger
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(maxEntries int, ttl time.Duration, logger *zap.Logger) *MemoryCache {
	c := &MemoryCache{logger: logger}
	c.lru = expirable.NewLRU[string, *core.CacheEntry](maxEntries, c.onEvict, ttl)
	return c
}

// Get retrieves a live entry
func (c *MemoryCache) Get(key string) (*core.CacheEntry, bool) {
	return c.lru.Get(key)
}

// Set stores an entry. A concurrent Set for the same key wins or loses as a whole.
func (c *MemoryCache) Set(entry *core.CacheEntry) {
	if entry == nil || entry.Key == "" {
		return
	}
	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = time.Now()
	}
	c.lru.Add(entry.Key, entry)
}

// Len reports the number of entries
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry
func (c *MemoryCache) Purge() {
	c.lru.Purge()
}

func (c *MemoryCache) onEvict(key string, entry *core.CacheEntry) {
	c.logger.Debug("Cache entry evicted",
		zap.String("key", key),
		zap.Duration("age", time.Since(entry.InsertedAt)))
}
