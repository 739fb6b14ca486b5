package risk

import (
	"reflect"
	"testing"
	"time"
)

func testFacts() Facts {
	return Facts{
		Stage:           "vegetative",
		DaysSinceSowing: 40,
		Irrigation:      "rainfed",
		Impact: map[string]any{
			"rain_risk":         0.1,
			"heat_stress_risk":  0.0,
			"cold_stress_risk":  0.0,
			"spray_safe":        true,
			"irrigation_needed": false,
			"field_work_safe":   true,
		},
		Forecast: map[string]any{
			"rain_probability":    20.0,
			"precipitation_total": 0.0,
			"temp_max":            30.0,
			"temp_min":            22.0,
			"humidity":            55.0,
		},
	}
}

func TestNewEngineCompilesBuiltinRules(t *testing.T) {
	en, err := NewEngine(BuiltinRules(), nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if got, want := len(en.Rules()), len(BuiltinRules()); got != want {
		t.Errorf("rules = %d, want %d", got, want)
	}
}

func TestNewEngineRejectsBadExpression(t *testing.T) {
	rules := []Rule{{
		ID:         "broken",
		Name:       "broken",
		Expression: `Stage == `,
		Kind:       KindPest,
		Severity:   SeverityLow,
		Message:    "m",
		TTL:        time.Hour,
	}}
	if _, err := NewEngine(rules, nil); err == nil {
		t.Error("NewEngine accepted an uncompilable rule")
	}
}

func TestEvaluateRuleMatrix(t *testing.T) {
	en, err := NewEngine(BuiltinRules(), nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	at := time.Date(2025, 7, 16, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(f *Facts)
		wantIDs []string
	}{
		{
			name:    "calm vegetative day fires nothing",
			mutate:  func(f *Facts) {},
			wantIDs: nil,
		},
		{
			name: "flowering heat is high severity",
			mutate: func(f *Facts) {
				f.Stage = "flowering"
				f.Impact["heat_stress_risk"] = 0.7
			},
			wantIDs: []string{"flowering-heat"},
		},
		{
			name: "moderate heat during flowering warns instead",
			mutate: func(f *Facts) {
				f.Stage = "flowering"
				f.Impact["heat_stress_risk"] = 0.4
			},
			wantIDs: []string{"flowering-heat-forecast"},
		},
		{
			name: "rain on flowering",
			mutate: func(f *Facts) {
				f.Stage = "flowering"
				f.Forecast["rain_probability"] = 85.0
			},
			wantIDs: []string{"flowering-rain"},
		},
		{
			name: "heavy rain near harvest fires both maturity rules",
			mutate: func(f *Facts) {
				f.Stage = "maturity"
				f.Forecast["precipitation_total"] = 32.0
				f.Impact["rain_risk"] = 0.8
			},
			wantIDs: []string{"maturity-heavy-rain", "maturity-rain"},
		},
		{
			name: "cold snap on seedlings",
			mutate: func(f *Facts) {
				f.Stage = "seedling"
				f.Forecast["temp_min"] = 7.0
			},
			wantIDs: []string{"seedling-cold"},
		},
		{
			name: "rainfed drought during vegetative growth",
			mutate: func(f *Facts) {
				f.Impact["irrigation_needed"] = true
				f.Forecast["rain_probability"] = 30.0
			},
			wantIDs: []string{"vegetative-drought"},
		},
		{
			name: "irrigated farm is not drought-flagged",
			mutate: func(f *Facts) {
				f.Irrigation = "drip"
				f.Impact["irrigation_needed"] = true
				f.Forecast["rain_probability"] = 30.0
			},
			wantIDs: nil,
		},
		{
			name: "humid warmth favors pests",
			mutate: func(f *Facts) {
				f.Forecast["humidity"] = 85.0
				f.Forecast["temp_max"] = 31.0
			},
			wantIDs: []string{"pest-humid-warmth"},
		},
		{
			name: "closed spray window",
			mutate: func(f *Facts) {
				f.Impact["spray_safe"] = false
			},
			wantIDs: []string{"spray-window-closed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := testFacts()
			tt.mutate(&facts)

			findings := en.Evaluate(at, facts)
			var ids []string
			for _, f := range findings {
				ids = append(ids, f.RuleID)
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("fired = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	en, err := NewEngine(BuiltinRules(), nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	at := time.Date(2025, 7, 16, 10, 0, 0, 0, time.UTC)

	facts := testFacts()
	facts.Stage = "flowering"
	facts.Impact["heat_stress_risk"] = 0.7
	facts.Impact["spray_safe"] = false
	facts.Forecast["rain_probability"] = 80.0

	first := en.Evaluate(at, facts)
	for i := 0; i < 10; i++ {
		if got := en.Evaluate(at, facts); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}

	// Matches come out in table order regardless of which facts changed.
	wantOrder := []string{"flowering-heat", "flowering-rain", "spray-window-closed"}
	for i, f := range first {
		if f.RuleID != wantOrder[i] {
			t.Errorf("finding %d = %s, want %s", i, f.RuleID, wantOrder[i])
		}
	}
}

func TestEvaluateSkipsRuntimeErrors(t *testing.T) {
	rules := []Rule{
		{
			ID:         "needs-missing-fact",
			Name:       "references an absent key",
			Expression: `Impact.no_such_field > 0.5`,
			Kind:       KindPest,
			Severity:   SeverityLow,
			Message:    "never fires",
			TTL:        time.Hour,
		},
		{
			ID:         "always-fires",
			Name:       "trivially true",
			Expression: `Days >= 0`,
			Kind:       KindPest,
			Severity:   SeverityLow,
			Message:    "fires",
			TTL:        time.Hour,
		},
	}
	en, err := NewEngine(rules, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	findings := en.Evaluate(time.Now(), Facts{Stage: "vegetative"})
	if len(findings) != 1 || findings[0].RuleID != "always-fires" {
		t.Errorf("findings = %+v, want only always-fires", findings)
	}
}

func TestEvaluateStampsValidUntil(t *testing.T) {
	en, err := NewEngine(BuiltinRules(), nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	at := time.Date(2025, 7, 16, 10, 0, 0, 0, time.UTC)

	facts := testFacts()
	facts.Impact["spray_safe"] = false

	findings := en.Evaluate(at, facts)
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}
	if want := at.Add(12 * time.Hour); !findings[0].ValidUntil.Equal(want) {
		t.Errorf("ValidUntil = %v, want %v", findings[0].ValidUntil, want)
	}
}

func TestOverallSeverity(t *testing.T) {
	if got := OverallSeverity(nil); got != "" {
		t.Errorf("empty findings severity = %q, want empty", got)
	}
	findings := []Finding{
		{Severity: SeverityLow},
		{Severity: SeverityHigh},
		{Severity: SeverityMedium},
	}
	if got := OverallSeverity(findings); got != SeverityHigh {
		t.Errorf("severity = %q, want high", got)
	}
}
