package risk

import (
	"testing"
	"time"
)

func validRule() Rule {
	return Rule{
		ID:         "test-rule",
		Name:       "test",
		Expression: `true`,
		Kind:       KindPest,
		Severity:   SeverityLow,
		Message:    "m",
		TTL:        time.Hour,
	}
}

func TestValidateRules(t *testing.T) {
	if err := ValidateRules(BuiltinRules()); err != nil {
		t.Errorf("builtin rules failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *Rule)
	}{
		{"uppercase id", func(r *Rule) { r.ID = "Bad-ID" }},
		{"id starts with digit", func(r *Rule) { r.ID = "1rule" }},
		{"empty expression", func(r *Rule) { r.Expression = "" }},
		{"empty message", func(r *Rule) { r.Message = "" }},
		{"unknown kind", func(r *Rule) { r.Kind = "volcano" }},
		{"unknown severity", func(r *Rule) { r.Severity = "extreme" }},
		{"zero TTL", func(r *Rule) { r.TTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(&r)
			if err := ValidateRules([]Rule{r}); err == nil {
				t.Error("ValidateRules accepted an invalid rule")
			}
		})
	}
}

func TestValidateRulesRejectsDuplicates(t *testing.T) {
	if err := ValidateRules([]Rule{validRule(), validRule()}); err == nil {
		t.Error("ValidateRules accepted duplicate IDs")
	}
}

func TestValidateRulesRejectsEmptyTable(t *testing.T) {
	if err := ValidateRules(nil); err == nil {
		t.Error("ValidateRules accepted an empty table")
	}
}
