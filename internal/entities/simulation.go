// Package entities contains the core domain objects for the basin simulator
package entities

import (
	"time"
)

// PolicySet holds the policy interventions a player can activate for a basin.
type PolicySet struct {
	TreatmentPlant bool `json:"treatment_plant"` // cuts incoming pollution to 30%
	Regulation     bool `json:"regulation"`      // cuts incoming pollution to 60%
	CleanupDrive   bool `json:"cleanup_drive"`   // boosts natural recovery
}

// Session represents one running simulation campaign over a river basin.
type Session struct {
	ID        string    `json:"id"`
	Day       int       `json:"day"`
	Pollution float64   `json:"pollution"` // pollution index, dimensionless
	Oxygen    float64   `json:"oxygen"`    // dissolved oxygen in mg/L
	Health    float64   `json:"health"`    // aquatic health, 0..100 percent
	Policies  PolicySet `json:"policies"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DayRecord is one row of a session's history: the inputs applied on a day
// and the basin conditions after that day's rule evaluation.
type DayRecord struct {
	Day          int     `json:"day"`
	FactoryInput float64 `json:"factory_input"` // industrial discharge, 0..10
	FarmInput    float64 `json:"farm_input"`    // agricultural runoff, 0..10
	Pollution    float64 `json:"pollution"`
	Oxygen       float64 `json:"oxygen"`
	Health       float64 `json:"health"`
}

// OxygenStatus classifies dissolved oxygen into ecosystem states.
type OxygenStatus string

const (
	OxygenHealthy  OxygenStatus = "Healthy"
	OxygenStressed OxygenStatus = "Stressed"
	OxygenHypoxia  OxygenStatus = "Hypoxia"
)

// PollutionStatus classifies the pollution index.
type PollutionStatus string

const (
	PollutionNormal   PollutionStatus = "Normal"
	PollutionElevated PollutionStatus = "Elevated"
	PollutionCritical PollutionStatus = "Critical"
)

// HealthStatus classifies aquatic health.
type HealthStatus string

const (
	HealthThriving   HealthStatus = "Thriving"
	HealthStrained   HealthStatus = "Strained"
	HealthCollapsing HealthStatus = "Collapsing"
)

// Report is the final sustainability report issued once a campaign completes.
type Report struct {
	SessionID      string  `json:"session_id"`
	Days           int     `json:"days"`
	AverageHealth  float64 `json:"average_health"`
	FinalPollution float64 `json:"final_pollution"`
	FinalOxygen    float64 `json:"final_oxygen"`
	Grade          string  `json:"grade"`
	Description    string  `json:"description"`
}
