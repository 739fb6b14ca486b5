package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agrimind/advisor/farmstate"
	"github.com/agrimind/advisor/internal/logger"
	"github.com/agrimind/advisor/phenology"
	"github.com/agrimind/advisor/risk"
	"github.com/agrimind/advisor/weather"
)

// WeatherEvaluator is the weather evaluator's seam.
type WeatherEvaluator interface {
	Evaluate(ctx context.Context, lat, lon float64) (*weather.Result, error)
}

// StageEvaluator is the crop-stage evaluator's seam.
type StageEvaluator interface {
	Evaluate(ctx context.Context, in phenology.Input) (*phenology.Result, error)
}

// RiskEvaluator is the risk engine's seam.
type RiskEvaluator interface {
	Evaluate(at time.Time, facts risk.Facts) []risk.Finding
}

// Config tunes the orchestrator.
type Config struct {
	// EvaluatorTimeout bounds each dispatched evaluator independently. An
	// evaluator that misses the deadline is treated as unavailable, never
	// as a request failure.
	EvaluatorTimeout time.Duration

	Confidence ConfidenceConfig
}

// DefaultConfig returns the standard orchestrator settings.
func DefaultConfig() Config {
	return Config{
		EvaluatorTimeout: 6 * time.Second,
		Confidence:       DefaultConfidenceConfig(),
	}
}

// Orchestrator routes a request to its evaluators, merges their outputs by
// fixed precedence, and commits crop progress. Evaluators only ever read;
// the orchestrator is the single writer of farm state.
type Orchestrator struct {
	store     farmstate.Store
	weather   WeatherEvaluator
	stage     StageEvaluator
	risk      RiskEvaluator
	snapshots weather.SnapshotCache
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
}

// NewOrchestrator wires the evaluators. snapshots is the same cache the
// weather evaluator writes to; the stage evaluator's temperature estimate
// reads it so the two can run concurrently without ordering between them.
func NewOrchestrator(store farmstate.Store, w WeatherEvaluator, s StageEvaluator, r RiskEvaluator, snapshots weather.SnapshotCache, cfg Config, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.EvaluatorTimeout <= 0 {
		cfg.EvaluatorTimeout = DefaultConfig().EvaluatorTimeout
	}
	if cfg.Confidence.Floor == 0 && cfg.Confidence.DefaultCeiling == 0 {
		cfg.Confidence = DefaultConfidenceConfig()
	}
	return &Orchestrator{
		store:     store,
		weather:   w,
		stage:     s,
		risk:      r,
		snapshots: snapshots,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Handle runs one request through the full pipeline: load context, dispatch
// the routed evaluators concurrently, merge by evaluator identity, score
// confidence, commit crop progress, and append the audit record. Evaluator
// failures degrade the decision; only a missing profile, a missing required
// crop, or an unknown intent fail the request.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Decision, error) {
	start := o.now()
	state := StateReceived

	needs, err := RequiredEvaluators(req.Intent)
	if err != nil {
		o.fail(ctx, req, state, err)
		return nil, err
	}

	// Context load. The profile is mandatory for every intent.
	profile, err := o.store.GetFarmProfile(ctx, req.FarmerID)
	if err != nil {
		if errors.Is(err, farmstate.ErrNotFound) {
			err = fmt.Errorf("%w: no farm profile for farmer %d", ErrProfileIncomplete, req.FarmerID)
		}
		o.fail(ctx, req, state, err)
		return nil, err
	}

	if req.Intent == IntentCropOnboarding {
		return o.handleOnboarding(ctx, req, profile, start)
	}

	crop, err := o.store.GetActiveCrop(ctx, req.FarmerID)
	if err != nil {
		if !errors.Is(err, farmstate.ErrNotFound) {
			o.fail(ctx, req, state, err)
			return nil, err
		}
		crop = nil
	}
	if crop == nil && requiresCrop(req.Intent) {
		err = fmt.Errorf("%w: no active crop for farmer %d", ErrProfileIncomplete, req.FarmerID)
		o.fail(ctx, req, state, err)
		return nil, err
	}
	state = StateContextLoaded

	// Concurrent dispatch. Each evaluator writes only its own slot and gets
	// its own deadline, so one slow evaluator cannot stall the others.
	var (
		wres *weather.Result
		wErr error
		sres *phenology.Result
		sErr error
	)
	wantWeather := needsSource(needs, SourceWeather) && profile.HasLocation
	wantStage := needsSource(needs, SourceCropStage) && crop != nil

	state = StateEvaluatorsDispatched
	g, gctx := errgroup.WithContext(ctx)
	if wantWeather {
		g.Go(func() error {
			wctx, cancel := context.WithTimeout(gctx, o.cfg.EvaluatorTimeout)
			defer cancel()
			wres, wErr = o.weather.Evaluate(wctx, profile.Latitude, profile.Longitude)
			return nil
		})
	}
	if wantStage {
		avgMax, avgMin := o.stageTemps(profile)
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, o.cfg.EvaluatorTimeout)
			defer cancel()
			sres, sErr = o.stage.Evaluate(sctx, phenology.Input{
				CropKind:      crop.CropKind,
				SowingDate:    crop.SowingDate,
				CheckpointGDD: crop.AccumulatedGDD,
				AvgTempMax:    avgMax,
				AvgTempMin:    avgMin,
				AsOf:          start,
			})
			return nil
		})
	}
	_ = g.Wait()

	if wErr != nil {
		logger.WeatherFailures.Add(1)
		o.log.Warn("weather evaluator unavailable", "farmer_id", req.FarmerID, "error", wErr)
		wres = nil
	}
	if sErr != nil {
		o.log.Warn("crop stage evaluator failed", "farmer_id", req.FarmerID, "error", sErr)
		sres = nil
	}

	// Risk is pure and runs at merge time over whatever the other two
	// produced. Without weather facts its rules simply do not fire.
	var findings []risk.Finding
	riskRan := false
	if needsSource(needs, SourceRisk) && o.risk != nil && sres != nil && wres != nil {
		findings = o.risk.Evaluate(start, buildFacts(sres, wres, profile))
		riskRan = true
	}
	state = StateMerged

	ev := evidence{profile: profile, crop: crop, weather: wres, stage: sres, findings: findings}

	d := &Decision{
		ID:             uuid.NewString(),
		FarmerID:       req.FarmerID,
		Intent:         req.Intent,
		Recommendation: recommend(req.Intent, ev),
		Findings:       findings,
		CreatedAt:      start,
	}
	d.DataSources = mergeSources(wres, sres, riskRan)
	d.Alerts = mergeAlerts(needs, wres, wantWeather, findings)
	d.Confidence = o.cfg.Confidence.Score(req.Intent, DegradedInputs{
		WeatherMissing: needsSource(needs, SourceWeather) && wres == nil,
		WeatherStale:   wres != nil && wres.Stale,
		CropIncomplete: needsSource(needs, SourceCropStage) && (crop == nil || sres == nil),
	})
	d.Reasoning = buildReasoning(req.Intent, ev, riskRan)
	d.State = StateFinalized

	// Post-finalize writes are best effort: a lost progress commit or audit
	// append degrades bookkeeping, never the answer.
	if sres != nil && crop != nil {
		o.commitProgress(ctx, req.FarmerID, crop.Version, sres)
	}
	o.audit(ctx, d)

	o.log.Info("decision finalized",
		"farmer_id", req.FarmerID,
		"intent", req.Intent,
		"decision_id", d.ID,
		"confidence", d.Confidence,
		"sources", strings.Join(d.DataSources, ","),
		"duration_ms", o.now().Sub(start).Milliseconds(),
	)
	return d, nil
}

// handleOnboarding registers a new active crop, seeding its progress from a
// stage evaluation so the first status query has state to build on.
func (o *Orchestrator) handleOnboarding(ctx context.Context, req Request, profile *farmstate.FarmProfile, start time.Time) (*Decision, error) {
	ob := req.Onboarding
	if ob == nil || ob.CropKind == "" || ob.SowingDate.IsZero() {
		err := fmt.Errorf("%w: crop kind and sowing date required for onboarding", ErrProfileIncomplete)
		o.fail(ctx, req, StateContextLoaded, err)
		return nil, err
	}
	if ob.SowingDate.After(start) {
		err := fmt.Errorf("%w: sowing date %s is in the future", ErrProfileIncomplete, ob.SowingDate.Format("2006-01-02"))
		o.fail(ctx, req, StateContextLoaded, err)
		return nil, err
	}

	avgMax, avgMin := o.stageTemps(profile)
	sres, err := o.stage.Evaluate(ctx, phenology.Input{
		CropKind:   phenology.NormalizeKind(ob.CropKind),
		SowingDate: ob.SowingDate,
		AvgTempMax: avgMax,
		AvgTempMin: avgMin,
		AsOf:       start,
	})
	if err != nil {
		o.fail(ctx, req, StateEvaluatorsDispatched, err)
		return nil, err
	}

	crop, err := o.store.CreateCrop(ctx, &farmstate.CropRecord{
		FarmerID:        req.FarmerID,
		CropKind:        phenology.NormalizeKind(ob.CropKind),
		Variety:         ob.Variety,
		SowingDate:      ob.SowingDate,
		AccumulatedGDD:  sres.AccumulatedGDD,
		Stage:           sres.Report.Stage,
		StageProgress:   sres.Report.StageProgress,
		OverallProgress: sres.Report.OverallProgress,
	})
	if err != nil {
		o.fail(ctx, req, StateMerged, err)
		return nil, fmt.Errorf("create crop: %w", err)
	}

	ev := evidence{profile: profile, crop: crop, stage: sres}
	d := &Decision{
		ID:             uuid.NewString(),
		FarmerID:       req.FarmerID,
		Intent:         req.Intent,
		Recommendation: recommend(req.Intent, ev),
		DataSources:    append(append([]string(nil), sres.DataSources...), "farm_context"),
		Alerts:         []string{},
		Confidence:     o.cfg.Confidence.Score(req.Intent, DegradedInputs{}),
		Reasoning:      buildReasoning(req.Intent, ev, false),
		State:          StateFinalized,
		CreatedAt:      start,
	}
	o.audit(ctx, d)

	o.log.Info("crop onboarded",
		"farmer_id", req.FarmerID,
		"crop_kind", crop.CropKind,
		"stage", crop.Stage,
		"decision_id", d.ID,
	)
	return d, nil
}

// stageTemps picks the temperature averages for GDD estimation: the cached
// forecast when one is fresh enough, regional defaults otherwise. Reading
// the cache instead of a live fetch keeps the stage evaluator independent
// of the weather evaluator's round trip.
func (o *Orchestrator) stageTemps(profile *farmstate.FarmProfile) (avgMax, avgMin float64) {
	if o.snapshots != nil && profile.HasLocation {
		if snap := o.snapshots.Get(profile.Latitude, profile.Longitude); snap != nil {
			if avgMax, avgMin, ok := snap.ForecastAverages(); ok {
				return avgMax, avgMin
			}
		}
	}
	return phenology.DefaultAvgTempMax, phenology.DefaultAvgTempMin
}

// commitProgress applies the evaluated delta via compare-and-swap, retrying
// once on a version conflict with refreshed state. A second conflict is
// logged as transient and dropped; the next evaluation re-derives the same
// progress from sowing date and GDD.
func (o *Orchestrator) commitProgress(ctx context.Context, farmerID int64, expectedVersion int64, sres *phenology.Result) {
	delta := farmstate.CropDelta{
		AccumulatedGDD:  sres.AccumulatedGDD,
		Stage:           sres.Report.Stage,
		StageProgress:   sres.Report.StageProgress,
		OverallProgress: sres.Report.OverallProgress,
	}

	_, err := o.store.CommitCropDelta(ctx, farmerID, delta, expectedVersion)
	if errors.Is(err, farmstate.ErrCommitConflict) {
		logger.CommitConflicts.Add(1)
		fresh, ferr := o.store.GetActiveCrop(ctx, farmerID)
		if ferr != nil {
			o.log.Warn("progress commit retry aborted", "farmer_id", farmerID, "error", ferr)
			return
		}
		_, err = o.store.CommitCropDelta(ctx, farmerID, delta, fresh.Version)
	}
	if err != nil {
		o.log.Warn("crop progress commit dropped", "farmer_id", farmerID, "error", err)
	}
}

func (o *Orchestrator) audit(ctx context.Context, d *Decision) {
	rec := &farmstate.DecisionRecord{
		ID:             d.ID,
		FarmerID:       d.FarmerID,
		Intent:         string(d.Intent),
		Recommendation: d.Recommendation,
		Confidence:     d.Confidence,
		Reasoning:      d.Reasoning,
		DataSources:    d.DataSources,
		Alerts:         d.Alerts,
		CreatedAt:      d.CreatedAt,
	}
	if err := o.store.AppendDecision(ctx, rec); err != nil {
		o.log.Error("decision audit append failed", "decision_id", d.ID, "error", err)
	}
}

// fail records a terminal outcome. Failed runs are audited too, so the
// decision history shows why a request produced no advice.
func (o *Orchestrator) fail(ctx context.Context, req Request, state State, err error) {
	o.log.Warn("decision request failed",
		"farmer_id", req.FarmerID,
		"intent", req.Intent,
		"state", string(state),
		"error", err,
	)
	o.audit(ctx, &Decision{
		ID:          uuid.NewString(),
		FarmerID:    req.FarmerID,
		Intent:      req.Intent,
		DataSources: []string{},
		Alerts:      []string{},
		Reasoning:   fmt.Sprintf("failed at %s: %v", state, err),
		State:       StateFailed,
		CreatedAt:   o.now(),
	})
}

// buildFacts flattens evaluator outputs into the rule engine's activation.
func buildFacts(sres *phenology.Result, wres *weather.Result, profile *farmstate.FarmProfile) risk.Facts {
	imp := wres.Impact
	facts := risk.Facts{
		Stage:           sres.Report.Stage,
		DaysSinceSowing: sres.DaysSinceSowing,
		Irrigation:      string(profile.Irrigation),
		Impact: map[string]any{
			"rain_risk":         imp.RainRisk,
			"heat_stress_risk":  imp.HeatStressRisk,
			"cold_stress_risk":  imp.ColdStressRisk,
			"spray_safe":        imp.SpraySafe,
			"irrigation_needed": imp.IrrigationNeeded,
			"field_work_safe":   imp.FieldWorkSafe,
		},
	}

	snap := wres.Snapshot
	forecast := map[string]any{
		"humidity": snap.Current.Humidity,
	}
	if len(snap.Forecast) > 0 {
		today := snap.Forecast[0]
		forecast["rain_probability"] = today.RainProbability
		forecast["temp_max"] = today.TempMax

		// Near-term window: the next three days drive precipitation totals
		// and cold-snap checks.
		total := 0.0
		tmin := math.Inf(1)
		for i, f := range snap.Forecast {
			if i >= 3 {
				break
			}
			total += f.PrecipitationMM
			if f.TempMin < tmin {
				tmin = f.TempMin
			}
		}
		forecast["precipitation_total"] = total
		forecast["temp_min"] = tmin
	}
	facts.Forecast = forecast
	return facts
}

// mergeSources lists contributing data sources in fixed evaluator-identity
// order, independent of completion order.
func mergeSources(wres *weather.Result, sres *phenology.Result, riskRan bool) []string {
	sources := make([]string, 0, 5)
	if wres != nil {
		sources = append(sources, wres.DataSources...)
	}
	if sres != nil {
		sources = append(sources, sres.DataSources...)
	}
	if riskRan {
		sources = append(sources, "risk_rules")
	}
	return append(sources, "farm_context")
}

// mergeAlerts collects degradation notices and medium-or-worse findings.
func mergeAlerts(needs []Source, wres *weather.Result, wantWeather bool, findings []risk.Finding) []string {
	alerts := make([]string, 0, 4)
	if needsSource(needs, SourceWeather) {
		switch {
		case !wantWeather:
			alerts = append(alerts, "Farm location is not set, so weather was not considered.")
		case wres == nil:
			alerts = append(alerts, "Live weather is unavailable; this advice does not account for current conditions.")
		case wres.Stale:
			alerts = append(alerts, "Weather reading is cached and may be out of date.")
		}
	}
	for _, f := range findings {
		if f.Severity.Rank() >= risk.SeverityMedium.Rank() {
			alerts = append(alerts, f.Message)
		}
	}
	return alerts
}

// buildReasoning assembles the audit trace naming each contributing
// evaluator in identity order.
func buildReasoning(intent Intent, ev evidence, riskRan bool) string {
	parts := []string{fmt.Sprintf("intent=%s", intent)}
	if ev.weather != nil {
		parts = append(parts, "weather: "+ev.weather.Justification)
	}
	if ev.stage != nil {
		parts = append(parts, "crop_stage: "+ev.stage.Justification)
	}
	if riskRan {
		if len(ev.findings) == 0 {
			parts = append(parts, "risk: no rules fired")
		} else {
			ids := make([]string, len(ev.findings))
			for i, f := range ev.findings {
				ids[i] = f.RuleID
			}
			parts = append(parts, fmt.Sprintf("risk: %d rule(s) fired (%s)", len(ids), strings.Join(ids, ", ")))
		}
	}
	ctxPart := fmt.Sprintf("context: farmer %d", ev.profile.FarmerID)
	if ev.crop != nil {
		ctxPart += fmt.Sprintf(", %s v%d", ev.crop.CropKind, ev.crop.Version)
	}
	parts = append(parts, ctxPart)
	return strings.Join(parts, "; ")
}
