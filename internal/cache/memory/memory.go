// Package memory is an in-process cache used when no redis address is
// configured. Entries expire lazily on access.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/cache"
)

type entry struct {
	val       string
	expiresAt time.Time
}

type Cache struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

func New() *Cache {
	return &Cache{items: make(map[string]entry), now: time.Now}
}

func (c *Cache) Set(_ context.Context, key, val string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = c.newEntry(val, ttl)
	return nil
}

func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		return "", cache.ErrMiss
	}
	return e.val, nil
}

func (c *Cache) SetNX(_ context.Context, key, val string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup(key); ok {
		return false, nil
	}
	c.items[key] = c.newEntry(val, ttl)
	return true, nil
}

func (c *Cache) CompareAndDel(_ context.Context, key, val string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok || e.val != val {
		return false, nil
	}
	delete(c.items, key)
	return true, nil
}

func (c *Cache) newEntry(val string, ttl time.Duration) entry {
	e := entry{val: val}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	return e
}

// lookup must be called with mu held.
func (c *Cache) lookup(key string) (entry, bool) {
	e, ok := c.items[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		return entry{}, false
	}
	return e, true
}
