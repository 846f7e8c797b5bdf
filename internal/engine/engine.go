// Package engine implements the rule-based water pollution model: how
// industrial discharge, agricultural runoff and policy interventions move the
// pollution index, dissolved oxygen and aquatic health of a basin day by day.
package engine

import (
	"fmt"
	"time"

	"github.com/simverse/riversim/internal/entities"
)

// CampaignDays is the default length of one simulation campaign. The campaign
// is over once a session's day counter reaches the campaign length.
const CampaignDays = 30

// Input bounds for the discharge and runoff sliders.
const (
	MinInput = 0.0
	MaxInput = 10.0
)

// Initial basin conditions on day 1.
const (
	InitialPollution = 10.0
	InitialOxygen    = 8.0 // mg/L, good health
	InitialHealth    = 100.0
)

const (
	factoryWeight   = 1.5 // pollution generated per unit of industrial discharge
	farmWeight      = 1.0 // pollution generated per unit of agricultural runoff
	naturalRecovery = 2.0 // pollution purified per day with no intervention

	treatmentFactor  = 0.3 // treatment plant keeps only 30% of daily pollution
	regulationFactor = 0.6 // regulation keeps only 60% of daily pollution
	cleanupBooster   = 2.5 // cleanup drive multiplies natural recovery

	oxygenBaseline   = 8.0  // DO of pristine water, mg/L
	oxygenFloor      = 0.5  // DO never drops below this, mg/L
	oxygenDepletion  = 0.15 // DO lost per unit of pollution index
	oxygenRelaxation = 0.4  // fraction of the gap to target DO closed per day

	oxygenStressLine = 6.0 // below this DO the ecosystem starts losing health
	oxygenPenalty    = 2.5 // health lost per mg/L of DO below the stress line
	toxicityLine     = 20.0
	toxicityPenalty  = 0.5 // health lost per pollution point above the toxicity line
	baseRecovery     = 3.0 // health regained per clean day
	cleanupRecovery  = 5.0 // extra health regained per clean day during a cleanup drive
)

// HypoxiaThreshold is the dissolved oxygen level, in mg/L, below which fish
// begin to die. The boundary is exclusive: exactly 4.0 mg/L is not hypoxic.
const HypoxiaThreshold = 4.0

// NewSession returns a session at initial basin conditions.
func NewSession(id string, now time.Time) *entities.Session {
	return &entities.Session{
		ID:        id,
		Day:       1,
		Pollution: InitialPollution,
		Oxygen:    InitialOxygen,
		Health:    InitialHealth,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FirstRecord is the history row for day 1, before any inputs are applied.
func FirstRecord(s *entities.Session) entities.DayRecord {
	return entities.DayRecord{
		Day:       s.Day,
		Pollution: s.Pollution,
		Oxygen:    s.Oxygen,
		Health:    s.Health,
	}
}

// ValidateInputs checks that the discharge and runoff levels are within the
// slider range.
func ValidateInputs(factory, farm float64) error {
	if factory < MinInput || factory > MaxInput {
		return fmt.Errorf("industrial discharge %.2f out of range [%.0f, %.0f]", factory, MinInput, MaxInput)
	}
	if farm < MinInput || farm > MaxInput {
		return fmt.Errorf("agricultural runoff %.2f out of range [%.0f, %.0f]", farm, MinInput, MaxInput)
	}
	return nil
}

// Step advances the session by one day under the given discharge and runoff
// inputs and the session's active policies, and returns the resulting history
// record. Inputs must already be validated.
func Step(s *entities.Session, factory, farm float64) entities.DayRecord {
	daily := factory*factoryWeight + farm*farmWeight

	if s.Policies.TreatmentPlant {
		daily *= treatmentFactor
	}
	if s.Policies.Regulation {
		daily *= regulationFactor
	}

	booster := 1.0
	if s.Policies.CleanupDrive {
		booster = cleanupBooster
	}

	net := daily - naturalRecovery*booster
	s.Pollution = max(0, s.Pollution+net)

	// DO relaxes toward a target depressed by the pollution index.
	target := max(oxygenFloor, oxygenBaseline-s.Pollution*oxygenDepletion)
	s.Oxygen += (target - s.Oxygen) * oxygenRelaxation

	impact := 0.0
	if s.Oxygen < oxygenStressLine {
		impact -= (oxygenStressLine - s.Oxygen) * oxygenPenalty
	}
	if s.Pollution > toxicityLine {
		impact -= (s.Pollution - toxicityLine) * toxicityPenalty
	}
	if s.Oxygen > oxygenStressLine && s.Pollution < toxicityLine {
		recovery := baseRecovery
		if s.Policies.CleanupDrive {
			recovery += cleanupRecovery
		}
		impact += recovery
	}
	s.Health = clamp(s.Health+impact, 0, 100)

	s.Day++
	return entities.DayRecord{
		Day:          s.Day,
		FactoryInput: factory,
		FarmInput:    farm,
		Pollution:    s.Pollution,
		Oxygen:       s.Oxygen,
		Health:       s.Health,
	}
}

// CampaignOver reports whether the session's campaign has run its course
// under the given campaign length.
func CampaignOver(s *entities.Session, campaignDays int) bool {
	return s.Day >= campaignDays
}

// OxygenStatus classifies dissolved oxygen. DO below 4.0 mg/L means hypoxia.
func OxygenStatus(do float64) entities.OxygenStatus {
	switch {
	case do < HypoxiaThreshold:
		return entities.OxygenHypoxia
	case do < oxygenStressLine:
		return entities.OxygenStressed
	default:
		return entities.OxygenHealthy
	}
}

// PollutionStatus classifies the pollution index.
func PollutionStatus(p float64) entities.PollutionStatus {
	switch {
	case p > 50:
		return entities.PollutionCritical
	case p > toxicityLine:
		return entities.PollutionElevated
	default:
		return entities.PollutionNormal
	}
}

// HealthStatus classifies aquatic health.
func HealthStatus(h float64) entities.HealthStatus {
	switch {
	case h > 80:
		return entities.HealthThriving
	case h > 50:
		return entities.HealthStrained
	default:
		return entities.HealthCollapsing
	}
}

// Report grades a completed campaign from its history.
func Report(s *entities.Session, history []entities.DayRecord) entities.Report {
	sum := 0.0
	for _, rec := range history {
		sum += rec.Health
	}
	avg := 0.0
	if len(history) > 0 {
		avg = sum / float64(len(history))
	}

	grade, desc := grade(avg, s.Pollution)
	return entities.Report{
		SessionID:      s.ID,
		Days:           s.Day,
		AverageHealth:  avg,
		FinalPollution: s.Pollution,
		FinalOxygen:    s.Oxygen,
		Grade:          grade,
		Description:    desc,
	}
}

func grade(avgHealth, finalPollution float64) (string, string) {
	switch {
	case avgHealth > 90 && finalPollution < 5:
		return "A+", "Environmental Champion! You've successfully restored the ecosystem."
	case avgHealth > 70:
		return "B", "Sustainable Manager. The river is healthy, but there's room for improvement."
	case avgHealth > 40:
		return "C", "Warning: Critical Stress. The ecosystem is struggling to survive."
	default:
		return "F", "Ecological Collapse. Immediate intervention was failed."
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
