package classify

import (
	"sync"
	"time"

	"github.com/mfigueira/caixinha/internal/model"
)

// cacheEntry represents a cached classification result.
type cacheEntry struct {
	expiry time.Time
	result model.ClassificationResult
}

// ResultCache provides thread-safe TTL caching for classification results,
// keyed by normalized message text.
type ResultCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	mu      sync.RWMutex
}

// NewResultCache creates a new cache and starts its cleanup loop.
func NewResultCache() *ResultCache {
	cache := &ResultCache{
		entries: make(map[string]cacheEntry),
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// Get retrieves a result from the cache if it exists and hasn't expired.
func (c *ResultCache) Get(key string) (*model.ClassificationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(entry.expiry) {
		return nil, false
	}

	result := entry.result
	return &result, true
}

// Set stores a result in the cache for the given TTL.
func (c *ResultCache) Set(key string, result *model.ClassificationResult, ttl time.Duration) {
	if result == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		result: *result,
		expiry: time.Now().Add(ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *ResultCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (c *ResultCache) Close() {
	close(c.stopCh)
}
