package weather

import (
	"testing"
	"time"
)

func cachedSnapshot(lat, lon float64, age time.Duration) *Snapshot {
	return &Snapshot{
		Latitude:  lat,
		Longitude: lon,
		FetchedAt: time.Now().Add(-age),
		Current:   Current{Temperature: 30},
		Forecast:  []DailyForecast{{TempMax: 34, TempMin: 24}},
	}
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	c := NewInMemorySnapshotCache(DefaultCacheConfig())
	c.Set(cachedSnapshot(26.85, 80.95, 0))

	got := c.Get(26.85, 80.95)
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if got.Current.Temperature != 30 {
		t.Errorf("temperature = %v, want 30", got.Current.Temperature)
	}
	if c.Get(10.0, 10.0) != nil {
		t.Error("expected miss for different location")
	}
}

func TestSnapshotCacheStalenessBound(t *testing.T) {
	c := NewInMemorySnapshotCache(CacheConfig{StalenessBound: time.Hour})

	c.Set(cachedSnapshot(26.85, 80.95, 2*time.Hour))
	if c.Get(26.85, 80.95) != nil {
		t.Error("entry past the staleness bound should not be served")
	}

	c.Set(cachedSnapshot(26.85, 80.95, 30*time.Minute))
	if c.Get(26.85, 80.95) == nil {
		t.Error("entry within the staleness bound should be served")
	}
}

func TestSnapshotCacheZeroBoundDisablesFallback(t *testing.T) {
	c := NewInMemorySnapshotCache(CacheConfig{})
	c.Set(cachedSnapshot(26.85, 80.95, 0))
	if c.Get(26.85, 80.95) != nil {
		t.Error("zero staleness bound should disable the cache")
	}
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	c := NewInMemorySnapshotCache(DefaultCacheConfig())
	c.Set(cachedSnapshot(26.85, 80.95, 0))
	c.Invalidate()
	if c.Get(26.85, 80.95) != nil {
		t.Error("invalidated cache should miss")
	}
}

func TestSnapshotCacheReturnsCopies(t *testing.T) {
	c := NewInMemorySnapshotCache(DefaultCacheConfig())
	c.Set(cachedSnapshot(26.85, 80.95, 0))

	first := c.Get(26.85, 80.95)
	first.Forecast[0].TempMax = -99
	first.Current.Temperature = -99

	second := c.Get(26.85, 80.95)
	if second.Forecast[0].TempMax == -99 || second.Current.Temperature == -99 {
		t.Error("mutating a returned snapshot leaked into the cache")
	}
}
