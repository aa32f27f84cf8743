package matrix

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"routeopt/internal/metrics"
	"routeopt/internal/model"
)

// Cache memoizes fetched matrices per (location set, profile). Entries are
// evicted in insertion order once capacity is exceeded. Safe for concurrent
// use; concurrent misses for the same key may each fetch, last write wins.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]Matrices
	order    []string
	hits     int64
	misses   int64
}

const DefaultCacheCapacity = 128

func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{capacity: capacity, entries: map[string]Matrices{}}
}

// Key derives the cache key from the profile and the ordered location list.
// Coordinates are rounded to 6 decimal places so float noise does not cause
// spurious misses.
func Key(locations []model.Location, profile string) string {
	var b strings.Builder
	b.WriteString(profile)
	for _, l := range locations {
		fmt.Fprintf(&b, ";%.6f,%.6f", l.Lat, l.Lng)
	}
	return b.String()
}

// GetOrFetch returns the cached matrices for the request or fetches them
// from the provider on a miss. forceRefresh bypasses the read but still
// stores the fetched result.
func (c *Cache) GetOrFetch(ctx context.Context, p Provider, locations []model.Location, profile string, forceRefresh bool) (Matrices, error) {
	key := Key(locations, profile)
	if !forceRefresh {
		c.mu.Lock()
		if m, ok := c.entries[key]; ok {
			c.hits++
			c.mu.Unlock()
			metrics.MatrixCacheHits.Inc()
			return m, nil
		}
		c.mu.Unlock()
	}

	// Fetch outside the lock: the provider call is the suspension point and
	// must not block unrelated cache users.
	m, err := p.GetDistanceMatrix(ctx, locations, profile)
	if err != nil {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		metrics.MatrixCacheMisses.Inc()
		return Matrices{}, err
	}

	c.mu.Lock()
	c.misses++
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = m
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.mu.Unlock()
	metrics.MatrixCacheMisses.Inc()
	return m, nil
}

// Stats returns the cumulative hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Capacity() int { return c.capacity }
