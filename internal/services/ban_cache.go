package services

import (
	"sync"
	"time"
)

// CachedStatus is what the cache remembers about a fingerprint.
type CachedStatus struct {
	Banned      bool
	BannedUntil *time.Time
}

type cacheEntry struct {
	status   CachedStatus
	cachedAt time.Time
}

// BanStatusCache is a bounded TTL cache in front of the attempt ledger's
// ban lookup. It absorbs the client-side polling traffic so the database
// is only consulted once per fingerprint per TTL. It is never the source
// of truth: an expired entry is a miss, and the escalator refreshes the
// entry whenever it mutates a record.
//
// Construct one instance at process start and inject it; there is no
// package-level cache.
type BanStatusCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
}

// NewBanStatusCache creates a cache with the given entry TTL and size bound.
func NewBanStatusCache(ttl time.Duration, maxEntries int) *BanStatusCache {
	return &BanStatusCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns the cached status for a fingerprint. An entry older than
// the TTL is treated as absent.
func (c *BanStatusCache) Get(fingerprint string) (CachedStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		return CachedStatus{}, false
	}
	if time.Since(entry.cachedAt) > c.ttl {
		delete(c.entries, fingerprint)
		return CachedStatus{}, false
	}
	return entry.status, true
}

// Put stores the status for a fingerprint. When the cache is full it
// sweeps expired entries first; the insert itself always proceeds so a
// write from the escalator is never blocked.
func (c *BanStatusCache) Put(fingerprint string, status CachedStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[fingerprint]; !exists && len(c.entries) >= c.maxEntries {
		c.sweepLocked()
	}
	c.entries[fingerprint] = cacheEntry{status: status, cachedAt: time.Now()}
}

// Invalidate drops the entry for a fingerprint.
func (c *BanStatusCache) Invalidate(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fingerprint)
}

// Sweep removes all entries older than the TTL.
func (c *BanStatusCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

// Len returns the current entry count.
func (c *BanStatusCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweepLocked is a best-effort expiry sweep, not LRU. Callers hold the lock.
func (c *BanStatusCache) sweepLocked() int {
	removed := 0
	now := time.Now()
	for fp, entry := range c.entries {
		if now.Sub(entry.cachedAt) > c.ttl {
			delete(c.entries, fp)
			removed++
		}
	}
	return removed
}
