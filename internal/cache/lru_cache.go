package cache

import (
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/trntxt/trntxt/internal/models"
)

// ResolverCache memoizes resolver results keyed by normalized query.
// The station catalog never changes after load, so entries need no expiry.
type ResolverCache struct {
	lru    *lru.Cache[string, []models.Station]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewResolverCache creates a cache holding at most size queries
func NewResolverCache(size int) (*ResolverCache, error) {
	lruCache, err := lru.New[string, []models.Station](size)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}

	return &ResolverCache{lru: lruCache}, nil
}

// Get returns a copy of the stations cached for query
func (c *ResolverCache) Get(query string) ([]models.Station, bool) {
	stations, ok := c.lru.Get(query)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return copyStations(stations), true
}

// Add stores a copy of stations so callers can't mutate cached results
func (c *ResolverCache) Add(query string, stations []models.Station) {
	c.lru.Add(query, copyStations(stations))
}

func (c *ResolverCache) Len() int {
	return c.lru.Len()
}

// GetCacheStats returns statistics about cache hits and misses
func (c *ResolverCache) GetCacheStats() map[string]uint64 {
	return map[string]uint64{
		"lru_hits":   c.hits.Load(),
		"lru_misses": c.misses.Load(),
	}
}

func copyStations(stations []models.Station) []models.Station {
	out := make([]models.Station, len(stations))
	copy(out, stations)
	return out
}
