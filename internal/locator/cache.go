package locator

import (
	"sort"
	"sync"
	"time"

	"storeloc/internal/poi"
	"storeloc/internal/routing"
)

// CacheEntry is the latest route known for a store
type CacheEntry struct {
	Feature   *poi.Feature
	Route     routing.Route
	UpdatedAt time.Time
}

// RouteCache holds one route per feature ID with thread-safe access.
// Set always replaces, so the last completion to arrive wins.
type RouteCache struct {
	entries map[string]CacheEntry
	mu      sync.RWMutex
}

// NewRouteCache creates an empty cache
func NewRouteCache() *RouteCache {
	return &RouteCache{
		entries: make(map[string]CacheEntry),
	}
}

// Set stores the route for f, replacing any previous entry
func (c *RouteCache) Set(f *poi.Feature, route routing.Route) {
	if f == nil || f.ID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[f.ID] = CacheEntry{
		Feature:   f,
		Route:     route,
		UpdatedAt: time.Now(),
	}
}

// Get retrieves the entry for a feature ID
func (c *RouteCache) Get(id string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	return e, ok
}

// Route returns the cached route for id, nil when none is cached
func (c *RouteCache) Route(id string) routing.Route {
	e, _ := c.Get(id)
	return e.Route
}

// Entries returns all entries sorted by feature ID
func (c *RouteCache) Entries() []CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]CacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Feature.ID < entries[j].Feature.ID
	})

	return entries
}

// Len returns the number of cached routes
func (c *RouteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes every entry
func (c *RouteCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry)
}
