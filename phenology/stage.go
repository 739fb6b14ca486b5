package phenology

import "math"

// StageReport is the derived phenological position of a crop.
type StageReport struct {
	Stage           string
	StageProgress   float64 // 0..1 within the current stage
	OverallProgress float64 // 0..1 of total GDD to maturity
	GDDToNextStage  float64
	WaterNeed       string
	NutrientNeed    string
	HeatSensitive   bool
	CriticalTempMax float64
}

// StageFor maps accumulated GDD onto the crop's ordered threshold table.
// Every non-negative GDD value maps to exactly one stage; values past the
// final bound stay in the final stage with full progress. Stage progress is
// linear between the stage's lower and upper GDD bounds.
func StageFor(info *CropInfo, gdd float64) StageReport {
	if gdd < 0 {
		gdd = 0
	}

	idx := len(info.Thresholds) - 1
	for i, th := range info.Thresholds {
		if gdd < th.UpperGDD {
			idx = i
			break
		}
	}
	th := info.Thresholds[idx]
	lower := info.LowerBound(idx)

	span := th.UpperGDD - lower
	stageProgress := 1.0
	if span > 0 {
		stageProgress = clamp01((gdd - lower) / span)
	}

	overall := 0.0
	if info.TotalGDD > 0 {
		overall = clamp01(gdd / info.TotalGDD)
	}

	return StageReport{
		Stage:           th.Stage,
		StageProgress:   round3(stageProgress),
		OverallProgress: round3(overall),
		GDDToNextStage:  math.Max(0, th.UpperGDD-gdd),
		WaterNeed:       th.WaterNeed,
		NutrientNeed:    th.NutrientNeed,
		HeatSensitive:   th.HeatSensitive,
		CriticalTempMax: th.CriticalTempMax,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
