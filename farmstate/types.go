package farmstate

import "time"

// IrrigationType classifies how a farm is watered.
type IrrigationType string

const (
	IrrigationRainfed   IrrigationType = "rainfed"
	IrrigationDrip      IrrigationType = "drip"
	IrrigationSprinkler IrrigationType = "sprinkler"
	IrrigationFlood     IrrigationType = "flood"
	IrrigationCanal     IrrigationType = "canal"
)

// FarmProfile describes a farmer and their farm. It is created by the
// onboarding flow and is read-only to the decision layer.
type FarmProfile struct {
	FarmerID      int64
	Name          string
	Language      string
	Latitude      float64
	Longitude     float64
	HasLocation   bool
	LocationName  string
	LandSizeAcres float64
	Irrigation    IrrigationType
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CropRecord is the persisted state of one crop instance. Accumulated GDD
// only ever grows for a given record; the Version field guards concurrent
// updates via compare-and-swap.
type CropRecord struct {
	ID              int64
	FarmerID        int64
	CropKind        string
	Variety         string
	SowingDate      time.Time
	AccumulatedGDD  float64
	Stage           string
	StageProgress   float64
	OverallProgress float64
	Active          bool
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DaysSinceSowing returns whole days between the sowing date and now,
// never negative.
func (c *CropRecord) DaysSinceSowing(now time.Time) int {
	d := int(now.Sub(c.SowingDate).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// CropDelta is a proposed update to a CropRecord. Evaluators return deltas;
// only the orchestrator commits them.
type CropDelta struct {
	AccumulatedGDD  float64
	Stage           string
	StageProgress   float64
	OverallProgress float64
}

// DecisionRecord is one audited orchestrator outcome.
type DecisionRecord struct {
	ID             string
	FarmerID       int64
	Intent         string
	Recommendation string
	Confidence     float64
	Reasoning      string
	DataSources    []string
	Alerts         []string
	CreatedAt      time.Time
}
