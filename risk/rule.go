// Package risk evaluates an ordered table of declarative rules over crop
// stage, weather impact, and days since sowing. Conditions are CEL
// expressions compiled once at engine construction; the table itself is
// data, auditable and testable independently of control flow.
package risk

import (
	"time"
)

// Kind classifies a threat.
type Kind string

const (
	KindPest        Kind = "pest"
	KindDisease     Kind = "disease"
	KindHeatStress  Kind = "heat-stress"
	KindColdStress  Kind = "cold-stress"
	KindWaterStress Kind = "water-stress"
	KindSprayUnsafe Kind = "spray-unsafe"
	KindRainDamage  Kind = "rain-damage"
)

// Severity grades a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities for display prioritization. Evaluation itself
// never short-circuits on severity.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Rule is one condition→finding pair. Rules are evaluated in slice order;
// all matching rules produce findings.
type Rule struct {
	ID         string
	Name       string
	Expression string // CEL over Stage, Impact, Days, Irrigation, Forecast
	Kind       Kind
	Severity   Severity
	Message    string
	Action     string
	TTL        time.Duration // how long the finding stays valid
}

// Finding is one fired rule.
type Finding struct {
	RuleID     string    `json:"rule_id"`
	Kind       Kind      `json:"kind"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Action     string    `json:"action"`
	ValidUntil time.Time `json:"valid_until"`
}

// BuiltinRules returns the standard advisory rule table in priority order.
func BuiltinRules() []Rule {
	day := 24 * time.Hour
	return []Rule{
		{
			ID:         "flowering-heat",
			Name:       "Heat stress during flowering",
			Expression: `Stage == "flowering" && Impact.heat_stress_risk >= 0.6`,
			Kind:       KindHeatStress,
			Severity:   SeverityHigh,
			Message:    "Critical heat stress during flowering can abort pollination",
			Action:     "Irrigate during the hottest hours for cooling. Avoid field work 11am-3pm.",
			TTL:        day,
		},
		{
			ID:         "flowering-heat-forecast",
			Name:       "Heat expected during flowering",
			Expression: `Stage == "flowering" && Impact.heat_stress_risk >= 0.3 && Impact.heat_stress_risk < 0.6`,
			Kind:       KindHeatStress,
			Severity:   SeverityMedium,
			Message:    "Heat stress expected in the coming days during flowering",
			Action:     "Prepare for irrigation and monitor temperatures closely.",
			TTL:        2 * day,
		},
		{
			ID:         "flowering-rain",
			Name:       "Rain during flowering",
			Expression: `Stage == "flowering" && Forecast.rain_probability > 70.0`,
			Kind:       KindDisease,
			Severity:   SeverityMedium,
			Message:    "Rain during flowering may wash pollen and invite fungal disease",
			Action:     "Monitor for disease after rain; flowering timing may affect yield.",
			TTL:        2 * day,
		},
		{
			ID:         "maturity-heavy-rain",
			Name:       "Heavy rain near harvest",
			Expression: `Stage == "maturity" && Forecast.precipitation_total > 20.0`,
			Kind:       KindRainDamage,
			Severity:   SeverityHigh,
			Message:    "Heavy rain expected during maturity risks grain damage",
			Action:     "Consider early harvest if the crop is ready; inspect for fungus after rain.",
			TTL:        2 * day,
		},
		{
			ID:         "maturity-rain",
			Name:       "Pre-harvest rain",
			Expression: `Stage == "maturity" && Impact.rain_risk >= 0.5`,
			Kind:       KindRainDamage,
			Severity:   SeverityMedium,
			Message:    "Rain likely during maturity; plan harvest around dry spells",
			Action:     "Watch the forecast and keep harvest equipment ready.",
			TTL:        day,
		},
		{
			ID:         "seedling-cold",
			Name:       "Cold snap on seedlings",
			Expression: `(Stage == "germination" || Stage == "seedling") && Forecast.temp_min < 10.0`,
			Kind:       KindColdStress,
			Severity:   SeverityMedium,
			Message:    "Cold temperatures may slow seedling growth",
			Action:     "Provide mulch or protective covering if possible.",
			TTL:        2 * day,
		},
		{
			ID:         "vegetative-drought",
			Name:       "Drought during vegetative growth",
			Expression: `Stage == "vegetative" && Irrigation == "rainfed" && Impact.irrigation_needed && Forecast.rain_probability <= 50.0`,
			Kind:       KindWaterStress,
			Severity:   SeverityMedium,
			Message:    "Dry spell during vegetative growth may limit yield potential",
			Action:     "Irrigate if possible; consider foliar spray to reduce water stress.",
			TTL:        day,
		},
		{
			ID:         "pest-humid-warmth",
			Name:       "Pest-favorable humid warmth",
			Expression: `Stage == "vegetative" && Forecast.humidity > 80.0 && Forecast.temp_max > 28.0`,
			Kind:       KindPest,
			Severity:   SeverityMedium,
			Message:    "Warm humid spell favors pest buildup",
			Action:     "Scout the field for early pest signs; spray only in safe wind.",
			TTL:        3 * day,
		},
		{
			ID:         "spray-window-closed",
			Name:       "Unsafe spraying conditions",
			Expression: `!Impact.spray_safe`,
			Kind:       KindSprayUnsafe,
			Severity:   SeverityLow,
			Message:    "Current wind or rain conditions are unsafe for spraying",
			Action:     "Postpone spraying until wind drops and rain risk clears.",
			TTL:        12 * time.Hour,
		},
	}
}
