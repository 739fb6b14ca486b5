package phenology

import (
	"math"
	"testing"
)

func testCrop() *CropInfo {
	return &CropInfo{
		Kind:     "test",
		BaseTemp: 10,
		TotalGDD: 500,
		Thresholds: []StageThreshold{
			{Stage: StageGermination, UpperGDD: 50, WaterNeed: "high"},
			{Stage: StageSeedling, UpperGDD: 150, WaterNeed: "high"},
			{Stage: StageVegetative, UpperGDD: 500, WaterNeed: "critical"},
		},
	}
}

func TestStageFor(t *testing.T) {
	info := testCrop()

	tests := []struct {
		name          string
		gdd           float64
		wantStage     string
		wantStageProg float64
		wantOverall   float64
	}{
		{"zero GDD starts germination", 0, StageGermination, 0, 0},
		{"inside germination", 25, StageGermination, 0.5, 0.05},
		{"boundary moves to next stage", 50, StageSeedling, 0, 0.1},
		{"mid vegetative", 270, StageVegetative, 0.343, 0.54},
		{"end of table", 500, StageVegetative, 1, 1},
		{"beyond table stays in final stage", 900, StageVegetative, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := StageFor(info, tt.gdd)
			if rep.Stage != tt.wantStage {
				t.Errorf("stage = %q, want %q", rep.Stage, tt.wantStage)
			}
			if math.Abs(rep.StageProgress-tt.wantStageProg) > 0.001 {
				t.Errorf("stage progress = %v, want %v", rep.StageProgress, tt.wantStageProg)
			}
			if math.Abs(rep.OverallProgress-tt.wantOverall) > 0.001 {
				t.Errorf("overall progress = %v, want %v", rep.OverallProgress, tt.wantOverall)
			}
		})
	}
}

func TestStageForEveryGDDMapsToOneStage(t *testing.T) {
	info := testCrop()
	for gdd := 0.0; gdd <= 600; gdd += 7.3 {
		rep := StageFor(info, gdd)
		if rep.Stage == "" {
			t.Fatalf("no stage for gdd %v", gdd)
		}
	}
}

func TestStageForCarriesThresholdAttributes(t *testing.T) {
	info, err := Lookup("rice")
	if err != nil {
		t.Fatalf("Lookup(rice) failed: %v", err)
	}

	rep := StageFor(info, 1000) // flowering window for rice
	if rep.Stage != StageFlowering {
		t.Fatalf("stage = %q, want %q", rep.Stage, StageFlowering)
	}
	if !rep.HeatSensitive {
		t.Error("flowering rice should be heat sensitive")
	}
	if rep.CriticalTempMax != 35 {
		t.Errorf("critical temp = %v, want 35", rep.CriticalTempMax)
	}
	if rep.WaterNeed != "critical" {
		t.Errorf("water need = %q, want critical", rep.WaterNeed)
	}
}
