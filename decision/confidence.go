package decision

import "math"

// ConfidenceConfig holds the scoring parameters. Confidence is a ceiling
// keyed by intent minus fixed penalties for degraded inputs, clamped to a
// floor so the response never claims zero certainty while still answering.
type ConfidenceConfig struct {
	Ceilings              map[Intent]float64 `yaml:"ceilings"`
	DefaultCeiling        float64            `yaml:"default_ceiling"`
	PenaltyWeatherMissing float64            `yaml:"penalty_weather_missing"`
	PenaltyCropIncomplete float64            `yaml:"penalty_crop_incomplete"`
	PenaltyStaleWeather   float64            `yaml:"penalty_stale_weather"`
	Floor                 float64            `yaml:"floor"`
}

// DefaultConfidenceConfig returns the standard scoring table: data-rich
// intents cap at 0.9, generic chat at 0.7.
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		Ceilings: map[Intent]float64{
			IntentIrrigation:     0.9,
			IntentWeather:        0.9,
			IntentCropStatus:     0.9,
			IntentHarvestTiming:  0.9,
			IntentCropOnboarding: 0.85,
			IntentGeneral:        0.7,
		},
		DefaultCeiling:        0.7,
		PenaltyWeatherMissing: 0.2,
		PenaltyCropIncomplete: 0.15,
		PenaltyStaleWeather:   0.1,
		Floor:                 0.1,
	}
}

// DegradedInputs records which inputs were missing or stale for scoring.
type DegradedInputs struct {
	WeatherMissing bool
	WeatherStale   bool
	CropIncomplete bool
}

// Score computes the confidence for an intent under the given degradation
// flags. Stale and missing weather are mutually exclusive penalties.
func (c ConfidenceConfig) Score(intent Intent, d DegradedInputs) float64 {
	ceiling, ok := c.Ceilings[intent]
	if !ok {
		ceiling = c.DefaultCeiling
	}
	score := ceiling
	if d.WeatherMissing {
		score -= c.PenaltyWeatherMissing
	} else if d.WeatherStale {
		score -= c.PenaltyStaleWeather
	}
	if d.CropIncomplete {
		score -= c.PenaltyCropIncomplete
	}
	if score < c.Floor {
		score = c.Floor
	}
	return math.Round(score*100) / 100
}
