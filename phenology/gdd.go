package phenology

import (
	"math"
	"time"
)

// UpperCutoffTemp caps the daily maximum used in GDD math; crop growth
// flattens out above it.
const UpperCutoffTemp = 35.0

// DailyTemp is one day's temperature extremes in Celsius.
type DailyTemp struct {
	Max float64
	Min float64
}

// DailyGDD computes one day's growing-degree contribution using the
// averaging method: max(0, (Tmax+Tmin)/2 - Tbase). The maximum is capped
// at the upper cutoff and the minimum floored at the base temperature, so
// a cold day contributes zero rather than a negative value.
func DailyGDD(tmax, tmin, base float64) float64 {
	tmax = math.Min(tmax, UpperCutoffTemp)
	tmin = math.Max(tmin, base)

	avg := (tmax + tmin) / 2
	gdd := avg - base
	if gdd < 0 {
		return 0
	}
	return round2(gdd)
}

// AccumulateGDD sums daily contributions onto a starting total. The result
// is never below the starting total.
func AccumulateGDD(start float64, temps []DailyTemp, base float64) float64 {
	total := start
	for _, t := range temps {
		total += DailyGDD(t.Max, t.Min, base)
	}
	return round2(total)
}

// EstimateGDD projects accumulated GDD from average daily extremes over the
// days since sowing. Used when per-day temperature history is unavailable.
func EstimateGDD(sowing time.Time, now time.Time, avgMax, avgMin, base float64) float64 {
	days := int(now.Sub(sowing).Hours() / 24)
	if days <= 0 {
		return 0
	}
	return round2(DailyGDD(avgMax, avgMin, base) * float64(days))
}

// DaysToTargetGDD estimates days until a GDD target at the given average
// daily accumulation. Returns 0 when the target is already reached and -1
// when no estimate is possible.
func DaysToTargetGDD(current, target, avgDaily float64) int {
	if current >= target {
		return 0
	}
	if avgDaily <= 0 {
		return -1
	}
	return int((target-current)/avgDaily) + 1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
