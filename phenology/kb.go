package phenology

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCropKind is returned when a crop is not in the knowledge base.
// Callers may fall back to the generic phenology curve via GenericCrop.
var ErrUnknownCropKind = errors.New("phenology: unknown crop kind")

// Stage names shared across the knowledge base. Per-crop tables pick an
// ordered subset of these.
const (
	StageGermination = "germination"
	StageSeedling    = "seedling"
	StageVegetative  = "vegetative"
	StageFlowering   = "flowering"
	StageFruiting    = "fruiting"
	StageMaturity    = "maturity"
	StageHarvest     = "harvest"
)

// StageThreshold is one entry of a crop's ordered phenology table: the
// stage holds while accumulated GDD is below UpperGDD (and at or above the
// previous entry's bound).
type StageThreshold struct {
	Stage           string
	UpperGDD        float64
	WaterNeed       string
	NutrientNeed    string
	HeatSensitive   bool
	CriticalTempMax float64 // 0 when the stage has no heat cutoff
}

// CropInfo is the knowledge-base entry for one crop kind.
type CropInfo struct {
	Kind       string
	BaseTemp   float64 // Celsius, for GDD
	Thresholds []StageThreshold
	// TotalGDD is cumulative GDD to full maturity (start of harvest window).
	TotalGDD float64
}

// LowerBound returns the GDD at which threshold index i begins.
func (c *CropInfo) LowerBound(i int) float64 {
	if i == 0 {
		return 0
	}
	return c.Thresholds[i-1].UpperGDD
}

// cropTable holds phenology data for the supported crops. Thresholds are a
// strictly increasing sequence of cumulative GDD upper bounds.
var cropTable = map[string]*CropInfo{
	"rice": {
		Kind:     "rice",
		BaseTemp: 10.0,
		TotalGDD: 2000,
		Thresholds: []StageThreshold{
			{Stage: StageGermination, UpperGDD: 120, WaterNeed: "high", NutrientNeed: "low"},
			{Stage: StageSeedling, UpperGDD: 350, WaterNeed: "high", NutrientNeed: "medium"},
			{Stage: StageVegetative, UpperGDD: 900, WaterNeed: "critical", NutrientNeed: "high"},
			{Stage: StageFlowering, UpperGDD: 1300, WaterNeed: "critical", NutrientNeed: "medium", HeatSensitive: true, CriticalTempMax: 35},
			{Stage: StageMaturity, UpperGDD: 2000, WaterNeed: "low", NutrientNeed: "low"},
			{Stage: StageHarvest, UpperGDD: 2200, WaterNeed: "none", NutrientNeed: "none"},
		},
	},
	"wheat": {
		Kind:     "wheat",
		BaseTemp: 4.5,
		TotalGDD: 1600,
		Thresholds: []StageThreshold{
			{Stage: StageGermination, UpperGDD: 100, WaterNeed: "medium", NutrientNeed: "low"},
			{Stage: StageSeedling, UpperGDD: 300, WaterNeed: "medium", NutrientNeed: "medium"},
			{Stage: StageVegetative, UpperGDD: 800, WaterNeed: "high", NutrientNeed: "high"},
			{Stage: StageFlowering, UpperGDD: 1100, WaterNeed: "critical", NutrientNeed: "medium", HeatSensitive: true, CriticalTempMax: 32},
			{Stage: StageMaturity, UpperGDD: 1600, WaterNeed: "low", NutrientNeed: "low"},
			{Stage: StageHarvest, UpperGDD: 1750, WaterNeed: "none", NutrientNeed: "none"},
		},
	},
	"maize": {
		Kind:     "maize",
		BaseTemp: 10.0,
		TotalGDD: 1500,
		Thresholds: []StageThreshold{
			{Stage: StageGermination, UpperGDD: 80, WaterNeed: "medium", NutrientNeed: "low"},
			{Stage: StageSeedling, UpperGDD: 250, WaterNeed: "medium", NutrientNeed: "medium"},
			{Stage: StageVegetative, UpperGDD: 750, WaterNeed: "high", NutrientNeed: "high"},
			{Stage: StageFlowering, UpperGDD: 1100, WaterNeed: "critical", NutrientNeed: "high", HeatSensitive: true, CriticalTempMax: 36},
			{Stage: StageMaturity, UpperGDD: 1500, WaterNeed: "medium", NutrientNeed: "low"},
			{Stage: StageHarvest, UpperGDD: 1650, WaterNeed: "none", NutrientNeed: "none"},
		},
	},
	"cotton": {
		Kind:     "cotton",
		BaseTemp: 15.5,
		TotalGDD: 2200,
		Thresholds: []StageThreshold{
			{Stage: StageGermination, UpperGDD: 100, WaterNeed: "medium", NutrientNeed: "low"},
			{Stage: StageSeedling, UpperGDD: 400, WaterNeed: "medium", NutrientNeed: "medium"},
			{Stage: StageVegetative, UpperGDD: 1000, WaterNeed: "high", NutrientNeed: "high"},
			{Stage: StageFlowering, UpperGDD: 1600, WaterNeed: "critical", NutrientNeed: "high", HeatSensitive: true, CriticalTempMax: 38},
			{Stage: StageMaturity, UpperGDD: 2200, WaterNeed: "medium", NutrientNeed: "low"},
			{Stage: StageHarvest, UpperGDD: 2400, WaterNeed: "none", NutrientNeed: "none"},
		},
	},
	"tomato": {
		Kind:     "tomato",
		BaseTemp: 10.0,
		TotalGDD: 1400,
		Thresholds: []StageThreshold{
			{Stage: StageGermination, UpperGDD: 80, WaterNeed: "medium", NutrientNeed: "low"},
			{Stage: StageSeedling, UpperGDD: 250, WaterNeed: "medium", NutrientNeed: "medium"},
			{Stage: StageVegetative, UpperGDD: 600, WaterNeed: "high", NutrientNeed: "high"},
			{Stage: StageFlowering, UpperGDD: 900, WaterNeed: "critical", NutrientNeed: "high", HeatSensitive: true, CriticalTempMax: 32},
			{Stage: StageFruiting, UpperGDD: 1200, WaterNeed: "high", NutrientNeed: "medium"},
			{Stage: StageMaturity, UpperGDD: 1400, WaterNeed: "medium", NutrientNeed: "low"},
			{Stage: StageHarvest, UpperGDD: 1550, WaterNeed: "low", NutrientNeed: "none"},
		},
	},
	"onion": {
		Kind:     "onion",
		BaseTemp: 5.0,
		TotalGDD: 1300,
		Thresholds: []StageThreshold{
			{Stage: StageGermination, UpperGDD: 90, WaterNeed: "medium", NutrientNeed: "low"},
			{Stage: StageSeedling, UpperGDD: 300, WaterNeed: "medium", NutrientNeed: "medium"},
			{Stage: StageVegetative, UpperGDD: 800, WaterNeed: "high", NutrientNeed: "high"},
			{Stage: StageMaturity, UpperGDD: 1300, WaterNeed: "low", NutrientNeed: "low"},
			{Stage: StageHarvest, UpperGDD: 1400, WaterNeed: "none", NutrientNeed: "none"},
		},
	},
}

// GenericCrop is the fallback phenology curve for crops missing from the
// knowledge base.
var GenericCrop = &CropInfo{
	Kind:     "generic",
	BaseTemp: 10.0,
	TotalGDD: 1500,
	Thresholds: []StageThreshold{
		{Stage: StageGermination, UpperGDD: 100, WaterNeed: "medium", NutrientNeed: "low"},
		{Stage: StageSeedling, UpperGDD: 300, WaterNeed: "medium", NutrientNeed: "medium"},
		{Stage: StageVegetative, UpperGDD: 800, WaterNeed: "high", NutrientNeed: "high"},
		{Stage: StageFlowering, UpperGDD: 1200, WaterNeed: "critical", NutrientNeed: "medium"},
		{Stage: StageMaturity, UpperGDD: 1500, WaterNeed: "low", NutrientNeed: "low"},
		{Stage: StageHarvest, UpperGDD: 1650, WaterNeed: "none", NutrientNeed: "none"},
	},
}

// NormalizeKind canonicalizes a crop kind for lookup.
func NormalizeKind(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	k = strings.ReplaceAll(k, " ", "_")
	k = strings.ReplaceAll(k, "-", "_")
	return k
}

// Lookup returns the knowledge-base entry for a crop kind.
func Lookup(kind string) (*CropInfo, error) {
	info, ok := cropTable[NormalizeKind(kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCropKind, kind)
	}
	return info, nil
}

// Kinds returns all supported crop kinds.
func Kinds() []string {
	out := make([]string, 0, len(cropTable))
	for k := range cropTable {
		out = append(out, k)
	}
	return out
}

// ValidateTable checks that a crop's stage thresholds form a strictly
// increasing sequence with non-empty stage names and that TotalGDD falls
// inside the table. The builtin tables are validated in tests.
func ValidateTable(info *CropInfo) error {
	if len(info.Thresholds) == 0 {
		return fmt.Errorf("crop %q has no stage thresholds", info.Kind)
	}
	prev := 0.0
	for i, th := range info.Thresholds {
		if th.Stage == "" {
			return fmt.Errorf("crop %q threshold %d has empty stage name", info.Kind, i)
		}
		if th.UpperGDD <= prev {
			return fmt.Errorf("crop %q thresholds not strictly increasing at %q (%.1f <= %.1f)",
				info.Kind, th.Stage, th.UpperGDD, prev)
		}
		prev = th.UpperGDD
	}
	if info.TotalGDD <= 0 || info.TotalGDD > prev {
		return fmt.Errorf("crop %q total GDD %.1f outside threshold table (max %.1f)",
			info.Kind, info.TotalGDD, prev)
	}
	return nil
}
