package weather

import (
	"fmt"
	"math"
	"strings"
)

// ImpactThresholds are the tunable cutoffs for impact assessment.
type ImpactThresholds struct {
	SprayWindMax     float64 // km/h
	SprayRainRiskMax float64 // 0..1
	HeatHighTemp     float64 // Celsius, risk reaches 1.0 here
	HeatMediumTemp   float64 // Celsius, ramp starts here
	IrrigationDryMM  float64 // mm of current precipitation considered "dry"
	IrrigationTemp   float64 // Celsius, irrigation heuristic needs heat
	HumidityDry      float64 // percent, below this counts as dry air
}

// DefaultThresholds returns the standard cutoffs.
func DefaultThresholds() ImpactThresholds {
	return ImpactThresholds{
		SprayWindMax:     15,
		SprayRainRiskMax: 0.3,
		HeatHighTemp:     38,
		HeatMediumTemp:   35,
		IrrigationDryMM:  5,
		IrrigationTemp:   25,
		HumidityDry:      60,
	}
}

// Impact is the farming-relevant summary of a weather snapshot.
type Impact struct {
	RainRisk         float64 `json:"rain_risk"`
	HeatStressRisk   float64 `json:"heat_stress_risk"`
	ColdStressRisk   float64 `json:"cold_stress_risk"`
	SpraySafe        bool    `json:"spray_safe"`
	IrrigationNeeded bool    `json:"irrigation_needed"`
	FieldWorkSafe    bool    `json:"field_work_safe"`
	Reasoning        string  `json:"reasoning"`
}

// AssessImpact converts a snapshot into an impact summary. Pure function:
// same snapshot and thresholds always produce the same impact.
func AssessImpact(snap *Snapshot, th ImpactThresholds) Impact {
	cur := snap.Current
	var today *DailyForecast
	if len(snap.Forecast) > 0 {
		today = &snap.Forecast[0]
	}

	rainRisk := 0.0
	switch {
	case cur.Precipitation > 0:
		rainRisk = 0.9
	case today != nil && today.RainProbability > 50:
		rainRisk = math.Round(today.RainProbability) / 100
	case cur.Condition == ConditionRainy || cur.Condition == ConditionStormy:
		rainRisk = 0.8
	}

	// Forecast max drives heat stress; ramps linearly from the medium
	// threshold to 1.0 at the high threshold.
	maxTemp := cur.Temperature
	if today != nil && today.TempMax > maxTemp {
		maxTemp = today.TempMax
	}
	heat := 0.0
	switch {
	case maxTemp >= th.HeatHighTemp:
		heat = 1.0
	case maxTemp > th.HeatMediumTemp:
		heat = (maxTemp - th.HeatMediumTemp) / (th.HeatHighTemp - th.HeatMediumTemp)
	case maxTemp > th.HeatMediumTemp-3:
		heat = 0.2
	}

	cold := 0.0
	switch {
	case cur.Temperature < 5:
		cold = 1.0
	case cur.Temperature < 10:
		cold = (10 - cur.Temperature) / 5
	case cur.Temperature < 15:
		cold = 0.2
	}

	spraySafe := rainRisk < th.SprayRainRiskMax &&
		cur.WindSpeed < th.SprayWindMax &&
		cur.Temperature < th.HeatMediumTemp &&
		cur.Temperature > 10

	irrigationNeeded := cur.Precipitation < th.IrrigationDryMM &&
		rainRisk < th.SprayRainRiskMax &&
		cur.Temperature > th.IrrigationTemp &&
		cur.Humidity < th.HumidityDry

	fieldWorkSafe := cur.Precipitation < 1 &&
		cur.Condition != ConditionStormy &&
		cur.WindSpeed < 30

	var reasons []string
	if rainRisk > 0.5 {
		reasons = append(reasons, fmt.Sprintf("high rain probability (%.0f%%)", rainRisk*100))
	}
	if heat > 0.3 {
		reasons = append(reasons, fmt.Sprintf("heat stress risk at %.0f°C", maxTemp))
	}
	if cold > 0.3 {
		reasons = append(reasons, fmt.Sprintf("cold stress risk at %.0f°C", cur.Temperature))
	}
	if !spraySafe && cur.WindSpeed >= th.SprayWindMax {
		reasons = append(reasons, fmt.Sprintf("wind too strong for spraying (%.0f km/h)", cur.WindSpeed))
	}
	reasoning := "weather conditions favorable for farming activities"
	if len(reasons) > 0 {
		reasoning = strings.Join(reasons, "; ")
	}

	return Impact{
		RainRisk:         clamp01(rainRisk),
		HeatStressRisk:   clamp01(heat),
		ColdStressRisk:   clamp01(cold),
		SpraySafe:        spraySafe,
		IrrigationNeeded: irrigationNeeded,
		FieldWorkSafe:    fieldWorkSafe,
		Reasoning:        reasoning,
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
