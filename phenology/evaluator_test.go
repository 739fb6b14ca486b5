package phenology

import (
	"context"
	"testing"
	"time"
)

func TestEvaluateRiceFromAverages(t *testing.T) {
	asOf := time.Date(2025, 7, 16, 12, 0, 0, 0, time.UTC)
	e := NewEvaluator(nil)

	res, err := e.Evaluate(context.Background(), Input{
		CropKind:   "rice",
		SowingDate: asOf.AddDate(0, 0, -15),
		AvgTempMax: 32,
		AvgTempMin: 24,
		AsOf:       asOf,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if res.AccumulatedGDD != 270 {
		t.Errorf("accumulated GDD = %v, want 270", res.AccumulatedGDD)
	}
	if res.DaysSinceSowing != 15 {
		t.Errorf("days since sowing = %v, want 15", res.DaysSinceSowing)
	}
	// 270 GDD sits in the rice seedling window (120-350).
	if res.Report.Stage != StageSeedling {
		t.Errorf("stage = %q, want %q", res.Report.Stage, StageSeedling)
	}
	if res.UsedFallback {
		t.Error("rice should not use the generic fallback")
	}
	if len(res.DataSources) == 0 {
		t.Error("data sources should be reported")
	}
}

func TestEvaluateUnknownCropFallsBack(t *testing.T) {
	asOf := time.Now()
	e := NewEvaluator(nil)

	res, err := e.Evaluate(context.Background(), Input{
		CropKind:   "quinoa",
		SowingDate: asOf.AddDate(0, 0, -30),
		AsOf:       asOf,
	})
	if err != nil {
		t.Fatalf("Evaluate should not fail for unknown crops: %v", err)
	}
	if !res.UsedFallback {
		t.Error("UsedFallback = false, want true for unknown crop")
	}
	if res.Report.Stage == "" {
		t.Error("fallback evaluation should still produce a stage")
	}
}

func TestEvaluateNeverRegressesBelowCheckpoint(t *testing.T) {
	asOf := time.Now()
	e := NewEvaluator(nil)

	res, err := e.Evaluate(context.Background(), Input{
		CropKind:      "rice",
		SowingDate:    asOf.AddDate(0, 0, -2),
		CheckpointGDD: 400, // recorded progress exceeds what 2 days can produce
		AvgTempMax:    30,
		AvgTempMin:    22,
		AsOf:          asOf,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.AccumulatedGDD < 400 {
		t.Errorf("accumulated GDD = %v, regressed below checkpoint 400", res.AccumulatedGDD)
	}
}

func TestEvaluateUsesDefaultTemps(t *testing.T) {
	asOf := time.Now()
	e := NewEvaluator(nil)

	res, err := e.Evaluate(context.Background(), Input{
		CropKind:   "rice",
		SowingDate: asOf.AddDate(0, 0, -10),
		AsOf:       asOf,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	// 10 days at the (32+22)/2 default mean over a 10°C base.
	if res.AccumulatedGDD != 170 {
		t.Errorf("accumulated GDD = %v, want 170 from default temps", res.AccumulatedGDD)
	}
}

func TestEvaluateDailyTempsOverrideAverages(t *testing.T) {
	asOf := time.Now()
	e := NewEvaluator(nil)

	res, err := e.Evaluate(context.Background(), Input{
		CropKind:      "rice",
		SowingDate:    asOf.AddDate(0, 0, -3),
		CheckpointGDD: 100,
		DailyTemps: []DailyTemp{
			{Max: 30, Min: 20},
			{Max: 28, Min: 22},
		},
		AsOf: asOf,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res.AccumulatedGDD != 130 {
		t.Errorf("accumulated GDD = %v, want 130 (100 + 15 + 15)", res.AccumulatedGDD)
	}
}

func TestEvaluateRequiresSowingDate(t *testing.T) {
	e := NewEvaluator(nil)
	if _, err := e.Evaluate(context.Background(), Input{CropKind: "rice"}); err == nil {
		t.Error("Evaluate accepted a zero sowing date")
	}
}
