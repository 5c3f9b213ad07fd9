// Package locations holds the static reference data for gauge locations. The
// catalog is a side table: aggregates look entries up by id and never own them.
package locations

import (
	"sort"
	"sync"

	"github.com/bbernstein/floodwatch/backend-go/internal/models"
)

// Lookup is the read-only view aggregates hold.
type Lookup interface {
	Lookup(id string) (*models.LocationInfo, bool)
}

type Catalog struct {
	mu      sync.RWMutex
	entries map[string]models.LocationInfo
}

var _ Lookup = (*Catalog)(nil)

func NewCatalog(infos ...models.LocationInfo) *Catalog {
	c := &Catalog{entries: make(map[string]models.LocationInfo, len(infos))}
	for _, info := range infos {
		c.entries[info.ID] = info
	}
	return c
}

// Lookup returns a copy of the entry for id. A missing entry is not an error:
// reference data may simply not be loaded yet.
func (c *Catalog) Lookup(id string) (*models.LocationInfo, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	info, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return &info, true
}

// Replace swaps the whole table.
func (c *Catalog) Replace(infos []models.LocationInfo) {
	entries := make(map[string]models.LocationInfo, len(infos))
	for _, info := range infos {
		entries[info.ID] = info
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
}

// All returns every entry ordered by id.
func (c *Catalog) All() []models.LocationInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.LocationInfo, 0, len(c.entries))
	for _, info := range c.entries {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
