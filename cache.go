package restcall

import (
	"context"
	"sync"
	"time"
)

// Cache stores completed responses keyed by "<operationKey>:<cacheKey>".
// Entry lifetime is the cache's own concern; the client only inserts on
// success and deletes on failure. Implementations must make Get, Set and
// Delete individually atomic with respect to concurrent callers.
type Cache interface {
	Get(ctx context.Context, key string) (*Response, bool)
	Set(ctx context.Context, key string, resp *Response) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	resp      *Response
	expiresAt time.Time
}

// MemoryCache is an in-process Cache with optional per-entry TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryCache creates a MemoryCache. A non-positive ttl means entries
// never expire.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), ttl: ttl}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Response, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.resp, true
}

func (c *MemoryCache) Set(_ context.Context, key string, resp *Response) error {
	e := memoryEntry{resp: resp}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}
