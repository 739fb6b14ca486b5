package risk

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/cel-go/cel"
)

// Engine compiles the rule table once and evaluates it deterministically:
// rules fire in table order, all matches are returned, and identical facts
// always produce identical findings.
type Engine struct {
	env      *cel.Env
	rules    []Rule
	programs map[string]cel.Program
	log      *slog.Logger
}

// NewEngine compiles all rules against a CEL environment declaring the
// fact variables. A rule that fails to compile rejects the whole table.
func NewEngine(rules []Rule, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}

	env, err := cel.NewEnv(
		cel.Variable("Stage", cel.StringType),
		cel.Variable("Impact", cel.DynType),
		cel.Variable("Days", cel.IntType),
		cel.Variable("Irrigation", cel.StringType),
		cel.Variable("Forecast", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	en := &Engine{
		env:      env,
		rules:    append([]Rule(nil), rules...),
		programs: make(map[string]cel.Program, len(rules)),
		log:      log,
	}

	for _, r := range rules {
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %s: compile error: %w", r.ID, issues.Err())
		}
		// Cost limit guards against runaway expressions from external
		// rule tables.
		prog, err := env.Program(ast, cel.CostLimit(1_000_000))
		if err != nil {
			return nil, fmt.Errorf("rule %s: program creation error: %w", r.ID, err)
		}
		en.programs[r.ID] = prog
	}

	return en, nil
}

// Rules returns the table in evaluation order.
func (en *Engine) Rules() []Rule {
	return append([]Rule(nil), en.rules...)
}

// Facts is the evaluation input. All fields feed the CEL activation; the
// evaluator carries no other state.
type Facts struct {
	Stage           string
	Impact          map[string]any
	DaysSinceSowing int
	Irrigation      string
	Forecast        map[string]any
}

// Evaluate runs every rule against the facts and returns all matches in
// table order. A rule that errors at runtime is skipped, never aborting
// the remaining rules. ValidUntil stamps derive from the supplied
// evaluation time, keeping results a pure function of the inputs.
func (en *Engine) Evaluate(at time.Time, facts Facts) []Finding {
	activation := map[string]any{
		"Stage":      facts.Stage,
		"Impact":     facts.Impact,
		"Days":       facts.DaysSinceSowing,
		"Irrigation": facts.Irrigation,
		"Forecast":   facts.Forecast,
	}
	if activation["Impact"] == nil {
		activation["Impact"] = map[string]any{}
	}
	if activation["Forecast"] == nil {
		activation["Forecast"] = map[string]any{}
	}

	findings := make([]Finding, 0, 4)
	for _, r := range en.rules {
		prog, ok := en.programs[r.ID]
		if !ok {
			continue
		}
		out, _, err := prog.Eval(activation)
		if err != nil {
			en.log.Warn("risk rule evaluation error", "rule_id", r.ID, "error", err)
			continue
		}
		matched, ok := out.Value().(bool)
		if !ok || !matched {
			continue
		}
		findings = append(findings, Finding{
			RuleID:     r.ID,
			Kind:       r.Kind,
			Severity:   r.Severity,
			Message:    r.Message,
			Action:     r.Action,
			ValidUntil: at.Add(r.TTL),
		})
	}
	return findings
}

// OverallSeverity returns the highest severity among findings, or empty
// when there are none.
func OverallSeverity(findings []Finding) Severity {
	best := Severity("")
	for _, f := range findings {
		if f.Severity.Rank() > best.Rank() {
			best = f.Severity
		}
	}
	return best
}
