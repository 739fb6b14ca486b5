package risk

import (
	"fmt"
	"regexp"
)

var ruleIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ValidateRules checks structural soundness of a rule table: unique
// lowercase-kebab IDs, non-empty expressions and messages, known kinds and
// severities, positive TTLs.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("risk: rule table is empty")
	}

	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if !ruleIDPattern.MatchString(r.ID) {
			return fmt.Errorf("risk: rule %d has invalid id %q (want lowercase kebab-case)", i, r.ID)
		}
		if seen[r.ID] {
			return fmt.Errorf("risk: duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true

		if r.Expression == "" {
			return fmt.Errorf("risk: rule %q has empty expression", r.ID)
		}
		if r.Message == "" {
			return fmt.Errorf("risk: rule %q has empty message", r.ID)
		}
		if !validKind(r.Kind) {
			return fmt.Errorf("risk: rule %q has unknown kind %q", r.ID, r.Kind)
		}
		switch r.Severity {
		case SeverityLow, SeverityMedium, SeverityHigh:
		default:
			return fmt.Errorf("risk: rule %q has unknown severity %q", r.ID, r.Severity)
		}
		if r.TTL <= 0 {
			return fmt.Errorf("risk: rule %q has non-positive TTL", r.ID)
		}
	}
	return nil
}

func validKind(k Kind) bool {
	switch k {
	case KindPest, KindDisease, KindHeatStress, KindColdStress,
		KindWaterStress, KindSprayUnsafe, KindRainDamage:
		return true
	default:
		return false
	}
}
