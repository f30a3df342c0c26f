package marketplace

import (
	"sync"
	"time"
)

// responseCache holds the last successful GET payload per (method, path).
// Any successful mutating call clears the whole cache for the owning
// client, because the marketplace's exact invalidation surface cannot
// be safely enumerated.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]cachedResponse
	ttl     time.Duration
}

type cachedResponse struct {
	payload  []byte
	cachedAt time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &responseCache{
		entries: make(map[string]cachedResponse),
		ttl:     ttl,
	}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Since(entry.cachedAt) >= c.ttl {
		return nil, false
	}
	return entry.payload, true
}

func (c *responseCache) set(key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedResponse{payload: payload, cachedAt: time.Now()}
}

func (c *responseCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedResponse)
}

func (c *responseCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
