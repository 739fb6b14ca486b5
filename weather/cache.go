package weather

import (
	"fmt"
	"sync"
	"time"
)

// SnapshotCache keeps the last good snapshot per location so evaluations
// can degrade gracefully when the provider is down. This is a fallback
// store, not a source of truth: fresh fetches always win.
type SnapshotCache interface {
	// Get returns the cached snapshot for a location, or nil on miss or
	// when the entry is older than the staleness bound.
	Get(lat, lon float64) *Snapshot

	// Set stores a snapshot under its location.
	Set(snap *Snapshot)

	// Invalidate clears all entries.
	Invalidate()
}

// CacheConfig controls snapshot cache behavior.
type CacheConfig struct {
	// StalenessBound is how old a cached snapshot may be and still be
	// served as a degraded fallback. Zero disables fallback entirely.
	StalenessBound time.Duration
}

// DefaultCacheConfig allows falling back to snapshots up to 6 hours old.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{StalenessBound: 6 * time.Hour}
}

// InMemorySnapshotCache is a mutex-guarded map keyed by rounded
// coordinates (two decimal places, roughly a 1 km cell).
type InMemorySnapshotCache struct {
	entries map[string]*Snapshot
	config  CacheConfig
	mu      sync.RWMutex
}

// NewInMemorySnapshotCache creates an empty cache.
func NewInMemorySnapshotCache(config CacheConfig) *InMemorySnapshotCache {
	return &InMemorySnapshotCache{
		entries: make(map[string]*Snapshot),
		config:  config,
	}
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", lat, lon)
}

func (c *InMemorySnapshotCache) Get(lat, lon float64) *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.config.StalenessBound <= 0 {
		return nil
	}
	snap, ok := c.entries[cacheKey(lat, lon)]
	if !ok {
		return nil
	}
	if time.Since(snap.FetchedAt) > c.config.StalenessBound {
		return nil
	}

	cp := *snap
	cp.Forecast = append([]DailyForecast(nil), snap.Forecast...)
	return &cp
}

func (c *InMemorySnapshotCache) Set(snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *snap
	cp.Forecast = append([]DailyForecast(nil), snap.Forecast...)
	c.entries[cacheKey(snap.Latitude, snap.Longitude)] = &cp
}

func (c *InMemorySnapshotCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Snapshot)
}
