package phenology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Default regional temperature averages used when no weather history is
// available (tropical growing season).
const (
	DefaultAvgTempMax = 32.0
	DefaultAvgTempMin = 22.0
)

// Input is the read-only context for one stage evaluation.
type Input struct {
	CropKind      string
	SowingDate    time.Time
	CheckpointGDD float64 // accumulated GDD already recorded for the crop

	// DailyTemps holds per-day extremes since the checkpoint. When empty
	// the evaluator estimates from AvgTempMax/AvgTempMin (or the defaults)
	// across the full period since sowing.
	DailyTemps []DailyTemp
	AvgTempMax float64
	AvgTempMin float64

	AsOf time.Time
}

// Result is the evaluator's structured output. AccumulatedGDD and the
// report are a proposed update; the caller decides whether to commit it.
type Result struct {
	CropKind        string
	AccumulatedGDD  float64
	DaysSinceSowing int
	Report          StageReport
	UsedFallback    bool // generic curve used for an unknown crop
	Justification   string
	DataSources     []string
}

// Evaluator derives crop stage from temperature history. It is a pure
// function of its input plus the static knowledge base; it never writes
// farm state.
type Evaluator struct {
	log *slog.Logger
}

// NewEvaluator creates a stage evaluator.
func NewEvaluator(log *slog.Logger) *Evaluator {
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{log: log}
}

// Evaluate computes accumulated GDD and the resulting stage report. An
// unknown crop kind falls back to the generic phenology curve and is
// reported via UsedFallback rather than failing the evaluation.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (*Result, error) {
	if in.SowingDate.IsZero() {
		return nil, fmt.Errorf("phenology: sowing date required")
	}
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	info, err := Lookup(in.CropKind)
	fallback := false
	if err != nil {
		if !errors.Is(err, ErrUnknownCropKind) {
			return nil, err
		}
		e.log.Warn("crop kind not in knowledge base, using generic curve",
			"crop_kind", in.CropKind)
		info = GenericCrop
		fallback = true
	}

	days := int(asOf.Sub(in.SowingDate).Hours() / 24)
	if days < 0 {
		days = 0
	}

	var gdd float64
	if len(in.DailyTemps) > 0 {
		gdd = AccumulateGDD(in.CheckpointGDD, in.DailyTemps, info.BaseTemp)
	} else {
		avgMax, avgMin := in.AvgTempMax, in.AvgTempMin
		if avgMax == 0 && avgMin == 0 {
			avgMax, avgMin = DefaultAvgTempMax, DefaultAvgTempMin
		}
		gdd = EstimateGDD(in.SowingDate, asOf, avgMax, avgMin, info.BaseTemp)
	}
	// Accumulated GDD never regresses below the recorded checkpoint.
	if gdd < in.CheckpointGDD {
		gdd = in.CheckpointGDD
	}

	report := StageFor(info, gdd)

	justification := fmt.Sprintf("stage %s from %.0f GDD over %d days", report.Stage, gdd, days)
	if fallback {
		justification += fmt.Sprintf(" (generic curve, %q not in knowledge base)", in.CropKind)
	}

	sources := []string{"gdd_calculation", "crop_knowledge_base"}

	return &Result{
		CropKind:        in.CropKind,
		AccumulatedGDD:  gdd,
		DaysSinceSowing: days,
		Report:          report,
		UsedFallback:    fallback,
		Justification:   justification,
		DataSources:     sources,
	}, nil
}
