package decision

import (
	"time"

	"github.com/agrimind/advisor/risk"
)

// State tracks a request through the orchestrator. Transitions only move
// forward; Failed is reachable from any state before Finalized.
type State string

const (
	StateReceived             State = "received"
	StateContextLoaded        State = "context_loaded"
	StateEvaluatorsDispatched State = "evaluators_dispatched"
	StateMerged               State = "merged"
	StateFinalized            State = "finalized"
	StateFailed               State = "failed"
)

// CropOnboarding carries the fields needed to register a new crop.
type CropOnboarding struct {
	CropKind   string
	Variety    string
	SowingDate time.Time
}

// Request is one pre-classified farmer query.
type Request struct {
	FarmerID int64
	Intent   Intent
	RawText  string

	// Onboarding is required when Intent is IntentCropOnboarding and
	// ignored otherwise.
	Onboarding *CropOnboarding
}

// Decision is the orchestrator's finalized outcome: a recommendation, the
// confidence behind it, and a reasoning trace naming every input that
// contributed. Identical requests against identical state produce
// identical decisions, timestamps and ID aside.
type Decision struct {
	ID             string         `json:"id"`
	FarmerID       int64          `json:"farmer_id"`
	Intent         Intent         `json:"intent"`
	Recommendation string         `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	DataSources    []string       `json:"data_sources"`
	Alerts         []string       `json:"alerts"`
	Findings       []risk.Finding `json:"findings,omitempty"`
	State          State          `json:"state"`
	CreatedAt      time.Time      `json:"created_at"`
}
