package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/bbernstein/floodwatch/backend-go/internal/config"
	"github.com/bbernstein/floodwatch/backend-go/internal/metrics"
	lru "github.com/hashicorp/golang-lru/v2"
)

type chartEntry struct {
	data      []byte
	expiresAt time.Time
}

// ChartCache keeps rendered chart options keyed by ChartKey. Entries expire
// after the configured TTL even when the LRU has room for them.
type ChartCache struct {
	lru   *lru.Cache[string, *chartEntry]
	ttl   time.Duration
	clock clock
	mu    sync.RWMutex
}

func NewChartCache(cfg *config.CacheConfig) (*ChartCache, error) {
	lruCache, err := lru.New[string, *chartEntry](cfg.ChartLRUSize)
	if err != nil {
		return nil, fmt.Errorf("creating chart LRU: %w", err)
	}

	return &ChartCache{
		lru:   lruCache,
		ttl:   cfg.GetChartLRUTTL(),
		clock: systemClock{},
	}, nil
}

// ChartKey identifies one chart rendering. version must change whenever the
// underlying aggregate does, typically its reading watermark or reading count.
func ChartKey(subject, mode, dataType string, start, end time.Time, version int64) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%d", subject, mode, dataType, start.Unix(), end.Unix(), version)
}

func (c *ChartCache) Add(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, &chartEntry{
		data:      data,
		expiresAt: c.clock.Now().Add(c.ttl),
	})
}

func (c *ChartCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.lru.Get(key)
	c.mu.RUnlock()

	if !ok {
		metrics.ChartCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	if c.clock.Now().After(entry.expiresAt) {
		c.mu.Lock()
		c.lru.Remove(key)
		c.mu.Unlock()
		metrics.ChartCacheLookups.WithLabelValues("expired").Inc()
		return nil, false
	}

	metrics.ChartCacheLookups.WithLabelValues("hit").Inc()
	return entry.data, true
}

func (c *ChartCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

func (c *ChartCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
