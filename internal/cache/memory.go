package cache

import (
	"bytes"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps encoded lookups in process memory until they expire.
// Values are copied in and out so a caller never aliases a stored payload.
type MemoryCache struct {
	entries *gocache.Cache
}

// NewMemoryCache creates a memory cache. Expired entries are swept every
// sweepEvery; a zero ttl on Set uses defaultTTL and a negative one never expires.
func NewMemoryCache(defaultTTL, sweepEvery time.Duration) *MemoryCache {
	return &MemoryCache{entries: gocache.New(defaultTTL, sweepEvery)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.entries.Get(key)
	if !found {
		return nil, false
	}
	payload, ok := val.([]byte)
	if !ok {
		c.entries.Delete(key)
		return nil, false
	}
	return bytes.Clone(payload), true
}

func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = gocache.NoExpiration
	}
	c.entries.Set(key, bytes.Clone(value), ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.entries.Delete(key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.entries.Flush()
	return nil
}

// Len reports the number of stored entries, including expired ones not yet swept
func (c *MemoryCache) Len() int {
	return c.entries.ItemCount()
}
