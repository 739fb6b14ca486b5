// Package decision coordinates the weather, crop-stage, and risk
// evaluators into one auditable recommendation. Evaluators never call each
// other; the orchestrator is the only component that composes them, and
// every outcome is deterministic given the same inputs.
package decision

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedIntent is terminal for a request: the intent is not
	// one the orchestrator knows how to route.
	ErrUnsupportedIntent = errors.New("decision: unsupported intent")

	// ErrProfileIncomplete is terminal: the intent needs a farm profile
	// or active crop that does not exist. Callers should redirect to
	// onboarding instead of guessing.
	ErrProfileIncomplete = errors.New("decision: profile incomplete")
)

// Intent is a pre-classified farmer request category. Classification
// happens upstream; the orchestrator only routes.
type Intent string

const (
	IntentIrrigation     Intent = "irrigation_query"
	IntentWeather        Intent = "weather_query"
	IntentCropStatus     Intent = "crop_status_query"
	IntentHarvestTiming  Intent = "harvest_timing_query"
	IntentGeneral        Intent = "general_query"
	IntentCropOnboarding Intent = "crop_onboarding_intent"
)

// ParseIntent validates a wire-level intent string.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case IntentIrrigation, IntentWeather, IntentCropStatus,
		IntentHarvestTiming, IntentGeneral, IntentCropOnboarding:
		return Intent(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedIntent, s)
	}
}

// Source identifies an evaluator. Merge order and data-source precedence
// are keyed by these identities, never by completion order.
type Source string

const (
	SourceWeather   Source = "weather"
	SourceCropStage Source = "crop_stage"
	SourceRisk      Source = "risk"
	SourceContext   Source = "context"
)

// routingTable maps each intent to the evaluators it requires. Context is
// always loaded and therefore not listed.
var routingTable = map[Intent][]Source{
	IntentIrrigation:     {SourceWeather, SourceCropStage, SourceRisk},
	IntentWeather:        {SourceWeather},
	IntentCropStatus:     {SourceCropStage, SourceWeather, SourceRisk},
	IntentHarvestTiming:  {SourceCropStage, SourceWeather, SourceRisk},
	IntentGeneral:        {},
	IntentCropOnboarding: {SourceCropStage},
}

// RequiredEvaluators returns the evaluator set for an intent.
func RequiredEvaluators(intent Intent) ([]Source, error) {
	needs, ok := routingTable[intent]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedIntent, intent)
	}
	return append([]Source(nil), needs...), nil
}

// requiresCrop reports whether an intent cannot be answered without an
// active crop record.
func requiresCrop(intent Intent) bool {
	switch intent {
	case IntentIrrigation, IntentCropStatus, IntentHarvestTiming:
		return true
	default:
		return false
	}
}

func needsSource(needs []Source, s Source) bool {
	for _, n := range needs {
		if n == s {
			return true
		}
	}
	return false
}
