package api

import (
	"time"

	"github.com/simverse/riversim/internal/engine"
	"github.com/simverse/riversim/internal/entities"
)

// SessionDetail is a session snapshot enriched with classification labels,
// the shape returned by every session endpoint.
type SessionDetail struct {
	entities.Session
	CampaignDays    int                      `json:"campaign_days"`
	CampaignOver    bool                     `json:"campaign_over"`
	OxygenStatus    entities.OxygenStatus    `json:"oxygen_status"`
	PollutionStatus entities.PollutionStatus `json:"pollution_status"`
	HealthStatus    entities.HealthStatus    `json:"health_status"`
}

// ComposeSessionDetail classifies the session's current conditions under the
// given campaign length.
func ComposeSessionDetail(s *entities.Session, campaignDays int) SessionDetail {
	return SessionDetail{
		Session:         *s,
		CampaignDays:    campaignDays,
		CampaignOver:    engine.CampaignOver(s, campaignDays),
		OxygenStatus:    engine.OxygenStatus(s.Oxygen),
		PollutionStatus: engine.PollutionStatus(s.Pollution),
		HealthStatus:    engine.HealthStatus(s.Health),
	}
}

// SessionListResponse lists all stored campaigns.
type SessionListResponse struct {
	Sessions []SessionDetail `json:"sessions"`
}

// StepRequest carries one day's slider inputs. Pointers distinguish missing
// fields from explicit zeros.
type StepRequest struct {
	FactoryInput *float64 `json:"factory_input"`
	FarmInput    *float64 `json:"farm_input"`
}

// StepResponse returns the updated session and the day's history row.
type StepResponse struct {
	Session SessionDetail      `json:"session"`
	Record  entities.DayRecord `json:"record"`
}

// PolicyRequest replaces the session's policy interventions.
type PolicyRequest struct {
	TreatmentPlant bool `json:"treatment_plant"`
	Regulation     bool `json:"regulation"`
	CleanupDrive   bool `json:"cleanup_drive"`
}

// HistoryResponse is the campaign's full day-by-day trace.
type HistoryResponse struct {
	SessionID string               `json:"session_id"`
	Records   []entities.DayRecord `json:"records"`
}

// ObservationsResponse lists observed station readings with the time of the
// most recent one.
type ObservationsResponse struct {
	LastUpdate   time.Time              `json:"last_update"`
	Observations []entities.Observation `json:"observations"`
}
