package weather

import (
	"context"
	"fmt"
	"log/slog"
)

// Result is the weather evaluator's structured output.
type Result struct {
	Snapshot      *Snapshot
	Impact        Impact
	Stale         bool // served from cache because the provider failed
	Justification string
	DataSources   []string
}

// Evaluator fetches a snapshot and derives its farming impact. No side
// effects beyond the snapshot cache; it is a function of (location, time).
type Evaluator struct {
	client     *Client
	cache      SnapshotCache
	thresholds ImpactThresholds
	log        *slog.Logger
}

// NewEvaluator wires a client, a fallback cache, and impact thresholds.
func NewEvaluator(client *Client, cache SnapshotCache, thresholds ImpactThresholds, log *slog.Logger) *Evaluator {
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{
		client:     client,
		cache:      cache,
		thresholds: thresholds,
		log:        log,
	}
}

// Evaluate returns the current snapshot and impact for a location. When the
// provider fails, a cached snapshot younger than the staleness bound is
// served with Stale set; otherwise the call fails with ErrDataUnavailable.
func (e *Evaluator) Evaluate(ctx context.Context, lat, lon float64) (*Result, error) {
	snap, err := e.client.Fetch(ctx, lat, lon)
	if err != nil {
		e.log.Warn("weather fetch failed", "latitude", lat, "longitude", lon, "error", err)

		if e.cache != nil {
			if cached := e.cache.Get(lat, lon); cached != nil {
				impact := AssessImpact(cached, e.thresholds)
				return &Result{
					Snapshot:      cached,
					Impact:        impact,
					Stale:         true,
					Justification: fmt.Sprintf("using cached weather from %s; %s", cached.FetchedAt.Format("15:04 MST"), impact.Reasoning),
					DataSources:   []string{SourceID + ":cached"},
				}, nil
			}
		}
		return nil, err
	}

	// Key the cache by the requested coordinates, not the provider's
	// grid point, so degraded lookups hit.
	snap.Latitude, snap.Longitude = lat, lon
	if e.cache != nil {
		e.cache.Set(snap)
	}

	impact := AssessImpact(snap, e.thresholds)
	return &Result{
		Snapshot:      snap,
		Impact:        impact,
		Justification: impact.Reasoning,
		DataSources:   []string{SourceID},
	}, nil
}
