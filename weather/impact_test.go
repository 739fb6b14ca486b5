package weather

import (
	"math"
	"strings"
	"testing"
)

func snapshotWith(cur Current, today DailyForecast) *Snapshot {
	return &Snapshot{
		Latitude:  26.85,
		Longitude: 80.95,
		Current:   cur,
		Forecast:  []DailyForecast{today},
	}
}

func TestAssessImpact(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name     string
		snap     *Snapshot
		check    func(t *testing.T, imp Impact)
	}{
		{
			name: "mild clear day is safe for everything",
			snap: snapshotWith(
				Current{Temperature: 24, Humidity: 50, WindSpeed: 5, Condition: ConditionClear},
				DailyForecast{TempMax: 28, TempMin: 18, RainProbability: 10},
			),
			check: func(t *testing.T, imp Impact) {
				if imp.RainRisk != 0 {
					t.Errorf("rain risk = %v, want 0", imp.RainRisk)
				}
				if !imp.SpraySafe {
					t.Error("spray should be safe")
				}
				if !imp.FieldWorkSafe {
					t.Error("field work should be safe")
				}
				if imp.IrrigationNeeded {
					t.Error("irrigation not needed at 24°C")
				}
			},
		},
		{
			name: "active precipitation dominates rain risk",
			snap: snapshotWith(
				Current{Temperature: 26, Precipitation: 2, Condition: ConditionRainy},
				DailyForecast{RainProbability: 30},
			),
			check: func(t *testing.T, imp Impact) {
				if imp.RainRisk != 0.9 {
					t.Errorf("rain risk = %v, want 0.9", imp.RainRisk)
				}
				if imp.SpraySafe {
					t.Error("spray unsafe while raining")
				}
			},
		},
		{
			name: "forecast probability above half becomes the risk",
			snap: snapshotWith(
				Current{Temperature: 26, Condition: ConditionCloudy},
				DailyForecast{RainProbability: 80},
			),
			check: func(t *testing.T, imp Impact) {
				if imp.RainRisk != 0.8 {
					t.Errorf("rain risk = %v, want 0.8", imp.RainRisk)
				}
			},
		},
		{
			name: "stormy condition without precip still risky",
			snap: snapshotWith(
				Current{Temperature: 26, Condition: ConditionStormy},
				DailyForecast{RainProbability: 20},
			),
			check: func(t *testing.T, imp Impact) {
				if imp.RainRisk != 0.8 {
					t.Errorf("rain risk = %v, want 0.8", imp.RainRisk)
				}
				if imp.FieldWorkSafe {
					t.Error("field work unsafe in storms")
				}
			},
		},
		{
			name: "extreme heat saturates heat stress",
			snap: snapshotWith(
				Current{Temperature: 39, Humidity: 30, Condition: ConditionClear},
				DailyForecast{TempMax: 40, RainProbability: 0},
			),
			check: func(t *testing.T, imp Impact) {
				if imp.HeatStressRisk != 1.0 {
					t.Errorf("heat risk = %v, want 1.0", imp.HeatStressRisk)
				}
				if !imp.IrrigationNeeded {
					t.Error("hot dry day should need irrigation")
				}
			},
		},
		{
			name: "heat ramps between medium and high thresholds",
			snap: snapshotWith(
				Current{Temperature: 30, Condition: ConditionClear},
				DailyForecast{TempMax: 36.5, RainProbability: 0},
			),
			check: func(t *testing.T, imp Impact) {
				if math.Abs(imp.HeatStressRisk-0.5) > 0.001 {
					t.Errorf("heat risk = %v, want 0.5", imp.HeatStressRisk)
				}
			},
		},
		{
			name: "strong wind blocks spraying with a reason",
			snap: snapshotWith(
				Current{Temperature: 24, WindSpeed: 22, Condition: ConditionClear},
				DailyForecast{RainProbability: 0},
			),
			check: func(t *testing.T, imp Impact) {
				if imp.SpraySafe {
					t.Error("spray unsafe at 22 km/h wind")
				}
				if !strings.Contains(imp.Reasoning, "wind") {
					t.Errorf("reasoning %q should mention wind", imp.Reasoning)
				}
			},
		},
		{
			name: "cold morning raises cold stress",
			snap: snapshotWith(
				Current{Temperature: 8, Condition: ConditionClear},
				DailyForecast{TempMax: 18, RainProbability: 0},
			),
			check: func(t *testing.T, imp Impact) {
				if math.Abs(imp.ColdStressRisk-0.4) > 0.001 {
					t.Errorf("cold risk = %v, want 0.4", imp.ColdStressRisk)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, AssessImpact(tt.snap, th))
		})
	}
}

func TestAssessImpactDeterministic(t *testing.T) {
	snap := snapshotWith(
		Current{Temperature: 33, Humidity: 45, WindSpeed: 12, Condition: ConditionPartlyCloudy},
		DailyForecast{TempMax: 37, TempMin: 26, RainProbability: 40},
	)
	th := DefaultThresholds()

	first := AssessImpact(snap, th)
	for i := 0; i < 5; i++ {
		if got := AssessImpact(snap, th); got != first {
			t.Fatalf("impact changed between identical calls: %+v vs %+v", got, first)
		}
	}
}
