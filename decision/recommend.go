package decision

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agrimind/advisor/farmstate"
	"github.com/agrimind/advisor/phenology"
	"github.com/agrimind/advisor/risk"
	"github.com/agrimind/advisor/weather"
)

// evidence is the merged evaluator output a recommender works from. Fields
// are nil when the evaluator was not routed or degraded away.
type evidence struct {
	profile  *farmstate.FarmProfile
	crop     *farmstate.CropRecord
	weather  *weather.Result
	stage    *phenology.Result
	findings []risk.Finding
}

// recommend builds the recommendation text for an intent. Each builder
// walks the intent's precedence order and takes the first evaluator with a
// firm opinion; the context fallback always has one, so the result is never
// empty.
func recommend(intent Intent, ev evidence) string {
	switch intent {
	case IntentIrrigation:
		return recommendIrrigation(ev)
	case IntentWeather:
		return recommendWeather(ev)
	case IntentCropStatus:
		return recommendCropStatus(ev)
	case IntentHarvestTiming:
		return recommendHarvest(ev)
	case IntentCropOnboarding:
		return recommendOnboarding(ev)
	default:
		return recommendGeneral(ev)
	}
}

func recommendIrrigation(ev evidence) string {
	for _, src := range Precedence(IntentIrrigation) {
		switch src {
		case SourceWeather:
			if ev.weather == nil {
				continue
			}
			imp := ev.weather.Impact
			if imp.RainRisk >= 0.6 {
				return fmt.Sprintf("Hold irrigation: rain is likely (%.0f%% risk). Let the rain do the watering and check the field afterwards.", imp.RainRisk*100)
			}
			if imp.IrrigationNeeded {
				cur := ev.weather.Snapshot.Current
				return fmt.Sprintf("Irrigate today: hot and dry conditions (%.0f°C, %.0f%% humidity) with no rain expected.", cur.Temperature, cur.Humidity)
			}
		case SourceRisk:
			if f := findingOfKind(ev.findings, risk.KindWaterStress); f != nil {
				return fmt.Sprintf("Irrigation recommended: %s. %s", lowerFirst(f.Message), f.Action)
			}
		case SourceCropStage:
			if ev.stage == nil {
				continue
			}
			rep := ev.stage.Report
			switch rep.WaterNeed {
			case "critical", "high":
				return fmt.Sprintf("Keep soil moisture steady: the %s stage has %s water demand. Irrigate if the topsoil is drying out.", rep.Stage, rep.WaterNeed)
			case "low", "none":
				return fmt.Sprintf("Irrigation can wait: water demand in the %s stage is %s.", rep.Stage, rep.WaterNeed)
			}
		case SourceContext:
			return "Monitor soil moisture and follow your usual irrigation schedule. Ask again once weather data is available for a sharper answer."
		}
	}
	return "Monitor soil moisture and follow your usual irrigation schedule."
}

func recommendWeather(ev evidence) string {
	if ev.weather == nil {
		return "Weather data is currently unavailable for your location. Please try again in a little while."
	}
	cur := ev.weather.Snapshot.Current
	imp := ev.weather.Impact

	var b strings.Builder
	fmt.Fprintf(&b, "Currently %.0f°C, %s, humidity %.0f%%, wind %.0f km/h.",
		cur.Temperature, describeCondition(cur.Condition), cur.Humidity, cur.WindSpeed)
	if len(ev.weather.Snapshot.Forecast) > 0 {
		today := ev.weather.Snapshot.Forecast[0]
		fmt.Fprintf(&b, " Today %.0f-%.0f°C with %.0f%% rain chance.", today.TempMin, today.TempMax, today.RainProbability)
	}
	switch {
	case imp.SpraySafe && imp.FieldWorkSafe:
		b.WriteString(" Good window for spraying and field work.")
	case imp.FieldWorkSafe:
		b.WriteString(" Field work is fine; hold off on spraying for now.")
	default:
		b.WriteString(" Conditions are not suitable for field work right now.")
	}
	if ev.weather.Stale {
		b.WriteString(" (Based on the last available reading.)")
	}
	return b.String()
}

func recommendCropStatus(ev evidence) string {
	for _, src := range Precedence(IntentCropStatus) {
		switch src {
		case SourceCropStage:
			if ev.stage == nil {
				continue
			}
			rep := ev.stage.Report
			var b strings.Builder
			fmt.Fprintf(&b, "Your %s is in the %s stage, day %d since sowing, %.0f%% of the way to maturity.",
				ev.stage.CropKind, rep.Stage, ev.stage.DaysSinceSowing, rep.OverallProgress*100)
			if rep.WaterNeed != "" && rep.WaterNeed != "none" {
				fmt.Fprintf(&b, " Water need is %s right now.", rep.WaterNeed)
			}
			if top := topFinding(ev.findings); top != nil {
				fmt.Fprintf(&b, " Watch out: %s.", lowerFirst(top.Message))
			}
			return b.String()
		case SourceContext:
			if ev.crop != nil {
				return fmt.Sprintf("Your %s was last recorded in the %s stage. I could not refresh its progress just now.",
					ev.crop.CropKind, ev.crop.Stage)
			}
			return "No active crop is registered yet. Tell me what you sowed and when, and I will track it for you."
		}
	}
	return "No crop status available."
}

func recommendHarvest(ev evidence) string {
	for _, src := range Precedence(IntentHarvestTiming) {
		switch src {
		case SourceCropStage:
			if ev.stage == nil {
				continue
			}
			rep := ev.stage.Report
			switch rep.Stage {
			case phenology.StageHarvest:
				msg := fmt.Sprintf("Your %s is ready for harvest.", ev.stage.CropKind)
				if ev.weather != nil && ev.weather.Impact.RainRisk >= 0.5 {
					msg += " Rain is expected, so plan the harvest around a dry spell and dry the produce well."
				}
				return msg
			case phenology.StageMaturity:
				days := phenology.DaysToTargetGDD(ev.stage.AccumulatedGDD, ev.stage.AccumulatedGDD+rep.GDDToNextStage, typicalDailyGDD(ev))
				msg := fmt.Sprintf("Your %s is maturing.", ev.stage.CropKind)
				if days > 0 {
					msg += fmt.Sprintf(" Expect harvest readiness in roughly %d days at current temperatures.", days)
				}
				if f := findingOfKind(ev.findings, risk.KindRainDamage); f != nil {
					msg += " " + f.Action
				}
				return msg
			default:
				return fmt.Sprintf("Your %s is still in the %s stage, about %.0f%% of the way to maturity. Harvest is a while off.",
					ev.stage.CropKind, rep.Stage, rep.OverallProgress*100)
			}
		case SourceContext:
			return "I need an active crop record to estimate harvest timing. Register your crop first."
		}
	}
	return "No harvest estimate available."
}

func recommendGeneral(ev evidence) string {
	if ev.crop != nil {
		return fmt.Sprintf("Your %s is being tracked and was last in the %s stage. Ask about irrigation, weather, crop status, or harvest timing for specific advice.",
			ev.crop.CropKind, ev.crop.Stage)
	}
	return "I can help with irrigation, weather, crop status, and harvest timing. Register a crop to get advice tailored to your field."
}

func recommendOnboarding(ev evidence) string {
	if ev.crop == nil || ev.stage == nil {
		return "I could not register the crop. Please tell me the crop and its sowing date."
	}
	msg := fmt.Sprintf("Registered %s sown on %s. It is currently in the %s stage",
		ev.crop.CropKind, ev.crop.SowingDate.Format("2 January 2006"), ev.stage.Report.Stage)
	if ev.stage.DaysSinceSowing > 0 {
		msg += fmt.Sprintf(", day %d since sowing", ev.stage.DaysSinceSowing)
	}
	msg += ". I will track its progress from here."
	if ev.stage.UsedFallback {
		msg += fmt.Sprintf(" Note: %s is not in my crop library yet, so estimates use a generic growth curve.", ev.crop.CropKind)
	}
	return msg
}

// lowerFirst lowercases the first rune so a rule message reads naturally
// mid-sentence.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// findingOfKind returns the first finding of a kind, in table order.
func findingOfKind(findings []risk.Finding, kind risk.Kind) *risk.Finding {
	for i := range findings {
		if findings[i].Kind == kind {
			return &findings[i]
		}
	}
	return nil
}

// topFinding returns the highest-severity finding, earliest in table order
// on ties.
func topFinding(findings []risk.Finding) *risk.Finding {
	var top *risk.Finding
	for i := range findings {
		if top == nil || findings[i].Severity.Rank() > top.Severity.Rank() {
			top = &findings[i]
		}
	}
	return top
}

// typicalDailyGDD estimates daily GDD accumulation from the forecast, or a
// warm-season default when no forecast is present.
func typicalDailyGDD(ev evidence) float64 {
	base := 10.0
	if ev.stage != nil {
		if info, err := phenology.Lookup(ev.stage.CropKind); err == nil {
			base = info.BaseTemp
		}
	}
	if ev.weather != nil {
		if avgMax, avgMin, ok := ev.weather.Snapshot.ForecastAverages(); ok {
			return phenology.DailyGDD(avgMax, avgMin, base)
		}
	}
	return phenology.DailyGDD(phenology.DefaultAvgTempMax, phenology.DefaultAvgTempMin, base)
}

func describeCondition(c weather.Condition) string {
	switch c {
	case weather.ConditionClear:
		return "clear skies"
	case weather.ConditionPartlyCloudy:
		return "partly cloudy"
	case weather.ConditionCloudy:
		return "overcast"
	case weather.ConditionRainy:
		return "rain"
	case weather.ConditionStormy:
		return "storms"
	case weather.ConditionFoggy:
		return "fog"
	default:
		return string(c)
	}
}
