// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache implements the advisory, per-category TTL cache described
// in spec §3: bounded LRU, never authoritative, always bypassable. The
// in-memory structure is a hashicorp/golang-lru/v2 per category; an
// optional SQLite-backed snapshot (see snapshot.go) can save and restore
// entries and is never on the read/write hot path.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Category names one of the TTL classes of spec §3.
type Category string

const (
	CategorySearch   Category = "search"
	CategoryMetadata Category = "metadata"
	CategoryNegative Category = "negative"
)

// defaultTTLs mirrors spec §3: search 1h, metadata 24h, negative results 5m.
var defaultTTLs = map[Category]time.Duration{
	CategorySearch:   time.Hour,
	CategoryMetadata: 24 * time.Hour,
	CategoryNegative: 5 * time.Minute,
}

// defaultCapacity bounds each category's LRU independently.
const defaultCapacity = 2048

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is the advisory cache the search_papers tool consults before
// running a meta-search, and populates after one returns. It is safe for
// concurrent use.
type Cache struct {
	mu    sync.Mutex
	ttls  map[Category]time.Duration
	lrus  map[Category]*lru.Cache[string, entry]
}

// New builds a Cache with spec-default TTLs and per-category capacity.
func New() *Cache {
	return NewWithCapacity(defaultCapacity)
}

// NewWithCapacity builds a Cache whose per-category LRU holds at most
// capacity entries.
func NewWithCapacity(capacity int) *Cache {
	c := &Cache{
		ttls: map[Category]time.Duration{
			CategorySearch:   defaultTTLs[CategorySearch],
			CategoryMetadata: defaultTTLs[CategoryMetadata],
			CategoryNegative: defaultTTLs[CategoryNegative],
		},
		lrus: make(map[Category]*lru.Cache[string, entry]),
	}
	for cat := range c.ttls {
		l, _ := lru.New[string, entry](capacity)
		c.lrus[cat] = l
	}
	return c
}

// SetTTL overrides the TTL for category, used by configuration overrides.
func (c *Cache) SetTTL(category Category, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttls[category] = ttl
}

// Get returns the cached value for key in category, and whether it was
// found and still live. An expired entry is evicted and reported as a
// miss.
func (c *Cache) Get(category Category, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lrus[category]
	if !ok {
		return nil, false
	}
	e, ok := l.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		l.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Set installs value under key in category with that category's TTL.
func (c *Cache) Set(category Category, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lrus[category]
	if !ok {
		return
	}
	ttl := c.ttls[category]
	l.Add(key, entry{value: value, expiresAt: time.Now().Add(ttl)})
}

// Invalidate removes key from category, if present.
func (c *Cache) Invalidate(category Category, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.lrus[category]; ok {
		l.Remove(key)
	}
}

// Len reports the current entry count for category, including entries
// that have expired but not yet been evicted by a Get.
func (c *Cache) Len(category Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.lrus[category]; ok {
		return l.Len()
	}
	return 0
}

// snapshotEntries returns a point-in-time copy of every live entry across
// all categories, keyed by (category, key), for Snapshot.Save.
func (c *Cache) snapshotEntries() []snapshotRow {
	c.mu.Lock()
	defer c.mu.Unlock()
	var rows []snapshotRow
	now := time.Now()
	for cat, l := range c.lrus {
		for _, key := range l.Keys() {
			e, ok := l.Peek(key)
			if !ok || now.After(e.expiresAt) {
				continue
			}
			rows = append(rows, snapshotRow{category: string(cat), key: key, expiresAt: e.expiresAt})
		}
	}
	return rows
}

// restoreEntry installs a row loaded from a snapshot without resetting
// its original expiry, skipping anything already expired.
func (c *Cache) restoreEntry(category, key string, expiresAt time.Time, value any) {
	if time.Now().After(expiresAt) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lrus[Category(category)]
	if !ok {
		return
	}
	l.Add(key, entry{value: value, expiresAt: expiresAt})
}
