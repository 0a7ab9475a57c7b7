package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
)

// cacheItem represents a single catalog in the cache with expiration
type cacheItem struct {
	Entries    []domain.CatalogEntry
	Expiration time.Time
}

// MemoryCache is a thread-safe in-memory catalog cache with TTL support
type MemoryCache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex
	done  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a new in-memory cache. Expired entries are swept every interval
// until Close is called.
func NewMemoryCache(interval time.Duration) *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]cacheItem),
		done: make(chan struct{}),
	}

	if interval > 0 {
		go cache.cleanupExpired(interval)
	}

	return cache
}

// Get retrieves a copy of a cached catalog
func (c *MemoryCache) Get(key string) ([]domain.CatalogEntry, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists || time.Now().After(item.Expiration) {
		return nil, false
	}

	return cloneEntries(item.Entries), true
}

// Set stores a copy of a catalog with TTL
func (c *MemoryCache) Set(key string, entries []domain.CatalogEntry, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem{
		Entries:    cloneEntries(entries),
		Expiration: time.Now().Add(ttl),
	}
}

// Delete removes a catalog from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
}

// Size returns the current number of items in the cache, expired or not
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.done) })
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

func (c *MemoryCache) sweep(now time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for key, item := range c.data {
		if now.After(item.Expiration) {
			delete(c.data, key)
		}
	}
}

func cloneEntries(entries []domain.CatalogEntry) []domain.CatalogEntry {
	out := make([]domain.CatalogEntry, len(entries))
	copy(out, entries)
	return out
}

// CachedSource serves a vendor's catalog from cache while it is fresh
type CachedSource struct {
	source domain.CatalogSource
	cache  *MemoryCache
	ttl    time.Duration
}

// NewCachedSource wraps source. A ttl <= 0 disables caching.
func NewCachedSource(source domain.CatalogSource, cache *MemoryCache, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, cache: cache, ttl: ttl}
}

// Vendor returns the wrapped source's vendor
func (s *CachedSource) Vendor() string {
	return s.source.Vendor()
}

// Fetch returns the cached catalog or fetches and caches a fresh one. Failures are not cached.
func (s *CachedSource) Fetch(ctx context.Context, targets []domain.TargetDescriptor) ([]domain.CatalogEntry, error) {
	if s.ttl <= 0 || s.cache == nil {
		return s.source.Fetch(ctx, targets)
	}

	key := s.source.Vendor()
	if entries, ok := s.cache.Get(key); ok {
		zap.L().Debug("cache: catalog hit", zap.String("vendor", key), zap.Int("entries", len(entries)))
		return entries, nil
	}

	entries, err := s.source.Fetch(ctx, targets)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, entries, s.ttl)
	return entries, nil
}
