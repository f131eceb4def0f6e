// Package cache provides a small in-process TTL cache used in front
// of the record store for read-heavy entities. The dispatch and
// tracking paths never depend on it for correctness.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Recorder receives hit/miss notifications, typically backed by
// prometheus counters.
type Recorder interface {
	CacheHit()
	CacheMiss()
}

// Cache is a TTL cache with a background sweep that reclaims expired
// entries. It is constructed explicitly and stopped at shutdown; there
// is no package-level instance.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	ttl      time.Duration
	recorder Recorder

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a cache and starts its sweep loop.
func New(ttl, sweepInterval time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}

	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	c.wg.Add(1)
	go c.sweep(sweepInterval)
	return c
}

// SetRecorder attaches a hit/miss recorder. Must be called before the
// cache is shared between goroutines.
func (c *Cache) SetRecorder(r Recorder) {
	c.recorder = r
}

// Get returns the cached value for key, or (nil, false) when absent or
// expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		if c.recorder != nil {
			c.recorder.CacheMiss()
		}
		return nil, false
	}
	if c.recorder != nil {
		c.recorder.CacheHit()
	}
	return e.value, true
}

// Set stores value under key with the cache's TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete invalidates one key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeletePrefix invalidates every key sharing prefix.
func (c *Cache) DeletePrefix(prefix string) {
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop terminates the sweep loop.
func (c *Cache) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Cache) sweep(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
