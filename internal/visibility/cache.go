package visibility

import (
	"slices"
	"sync"

	"github.com/roach88/ags/internal/world"
)

type cacheKey struct {
	observer string
	record   string
}

// Cache memoizes projections per (observer, record). Entries are dropped by
// Invalidate as committed changes arrive from the event bus.
//
// A generation counter guards against a reader storing a projection built
// from a world that was replaced while it was computing: Put is ignored
// unless the generation is still the one the reader started from.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]Projection
	gen     uint64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]Projection)}
}

// Generation returns the current invalidation generation.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Get returns the cached projection of record for observer.
func (c *Cache) Get(observer, record string) (Projection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[cacheKey{observer, record}]
	return p, ok
}

// Put stores p if no invalidation happened since gen was read.
func (c *Cache) Put(observer string, p Projection, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.entries[cacheKey{observer, p.ID}] = p
	return true
}

// Len returns the number of cached projections.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	clear(c.entries)
}

// Invalidate drops the entries a committed change can affect. w is the world
// the change was committed to.
//
// The changed record is dropped for every observer. A zone change also
// drops everything the moved entity observed, since its vantage point
// moved, and the projections of both zones, whose occupant lists changed.
// A visibility or tag change drops the zone holding the record and every
// entity carrying it, whose inventory listing may change with it.
func (c *Cache) Invalidate(w *world.World, ch world.Change) {
	if ch.Event == world.EventWorldReset {
		c.Clear()
		return
	}

	records := []string{ch.Target}
	var observer string
	switch ch.Event {
	case "zone_changed":
		observer = ch.Target
		records = append(records, ch.BeforeString(), ch.AfterString())
	case "visibility_changed", "known_by_changed", "tag_added", "tag_removed":
		if w != nil {
			if e, ok := w.Entities[ch.Target]; ok && e.Located() {
				records = append(records, e.Zone)
			}
			records = append(records, holders(w, ch.Target)...)
		}
		if ch.Event == "known_by_changed" {
			observer = ch.Related
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for key := range c.entries {
		if (observer != "" && key.observer == observer) || slices.Contains(records, key.record) {
			delete(c.entries, key)
		}
	}
}

// holders returns the entities carrying item.
func holders(w *world.World, item string) []string {
	var ids []string
	for id, e := range w.Entities {
		if _, ok := e.Inventory[item]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
