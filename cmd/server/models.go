package main

import (
	"fmt"
	"time"

	"github.com/agrimind/advisor/decision"
	"github.com/agrimind/advisor/farmstate"
)

// ChatRequest is one pre-classified advisory query. Intent classification
// happens upstream; this service never guesses it from the message text.
type ChatRequest struct {
	FarmerID int64  `json:"farmer_id"`
	Intent   string `json:"intent"`
	Message  string `json:"message"`

	// Onboarding fields, used only with the crop_onboarding_intent.
	CropKind   string `json:"crop_kind,omitempty"`
	Variety    string `json:"variety,omitempty"`
	SowingDate string `json:"sowing_date,omitempty"` // YYYY-MM-DD
}

func (r *ChatRequest) toDecisionRequest() (decision.Request, error) {
	intent, err := decision.ParseIntent(r.Intent)
	if err != nil {
		return decision.Request{}, err
	}
	req := decision.Request{
		FarmerID: r.FarmerID,
		Intent:   intent,
		RawText:  r.Message,
	}
	if intent == decision.IntentCropOnboarding {
		ob := &decision.CropOnboarding{CropKind: r.CropKind, Variety: r.Variety}
		if r.SowingDate != "" {
			sown, err := time.Parse("2006-01-02", r.SowingDate)
			if err != nil {
				return decision.Request{}, fmt.Errorf("invalid sowing_date %q: %w", r.SowingDate, err)
			}
			ob.SowingDate = sown
		}
		req.Onboarding = ob
	}
	return req, nil
}

// ChatResponse is the wire shape existing clients depend on. Field names
// and types are frozen.
type ChatResponse struct {
	Response    string   `json:"response"`
	Confidence  float64  `json:"confidence"`
	Reasoning   string   `json:"reasoning"`
	DataSources []string `json:"data_sources"`
	Alerts      []string `json:"alerts"`
}

func chatResponseFrom(d *decision.Decision) ChatResponse {
	return ChatResponse{
		Response:    d.Recommendation,
		Confidence:  d.Confidence,
		Reasoning:   d.Reasoning,
		DataSources: d.DataSources,
		Alerts:      d.Alerts,
	}
}

// ProfileRequest creates or replaces a farm profile.
type ProfileRequest struct {
	Name          string   `json:"name"`
	Language      string   `json:"language,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	LocationName  string   `json:"location_name,omitempty"`
	LandSizeAcres float64  `json:"land_size_acres,omitempty"`
	Irrigation    string   `json:"irrigation,omitempty"`
}

func (r *ProfileRequest) toProfile(farmerID int64) *farmstate.FarmProfile {
	p := &farmstate.FarmProfile{
		FarmerID:      farmerID,
		Name:          r.Name,
		Language:      r.Language,
		LocationName:  r.LocationName,
		LandSizeAcres: r.LandSizeAcres,
		Irrigation:    farmstate.IrrigationType(r.Irrigation),
	}
	if r.Latitude != nil && r.Longitude != nil {
		p.Latitude = *r.Latitude
		p.Longitude = *r.Longitude
		p.HasLocation = true
	}
	return p
}

// CropStatusResponse reports the persisted crop state.
type CropStatusResponse struct {
	CropKind        string  `json:"crop_kind"`
	Variety         string  `json:"variety,omitempty"`
	SowingDate      string  `json:"sowing_date"`
	DaysSinceSowing int     `json:"days_since_sowing"`
	Stage           string  `json:"stage"`
	StageProgress   float64 `json:"stage_progress"`
	OverallProgress float64 `json:"overall_progress"`
	AccumulatedGDD  float64 `json:"accumulated_gdd"`
}

func cropStatusFrom(c *farmstate.CropRecord, now time.Time) CropStatusResponse {
	return CropStatusResponse{
		CropKind:        c.CropKind,
		Variety:         c.Variety,
		SowingDate:      c.SowingDate.Format("2006-01-02"),
		DaysSinceSowing: c.DaysSinceSowing(now),
		Stage:           c.Stage,
		StageProgress:   c.StageProgress,
		OverallProgress: c.OverallProgress,
		AccumulatedGDD:  c.AccumulatedGDD,
	}
}
