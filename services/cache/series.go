package cache

import (
	"sync"

	"sjsage522/goldpriceworker/internal/gold"
)

// SeriesCache keeps the last known-good series per weight class.
// One mutex guards both reads and writes; the last writer wins.
type SeriesCache struct {
	mu     sync.Mutex
	series map[gold.WeightClass]gold.Series
}

// NewSeriesCache creates an empty cache
func NewSeriesCache() *SeriesCache {
	return &SeriesCache{series: make(map[gold.WeightClass]gold.Series)}
}

// Get returns the cached series and whether one was stored
func (c *SeriesCache) Get(weight gold.WeightClass) (gold.Series, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.series[weight]
	return s, ok
}

// Set replaces the cached series for weight
func (c *SeriesCache) Set(weight gold.WeightClass, series gold.Series) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series[weight] = series
}
