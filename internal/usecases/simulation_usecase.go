// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/simverse/riversim/internal/engine"
	"github.com/simverse/riversim/internal/entities"
	"github.com/simverse/riversim/internal/integration"
	"github.com/simverse/riversim/internal/integration/openai"
	"github.com/simverse/riversim/internal/repository"
)

// ErrInvalidInput is returned when discharge or runoff inputs are out of range.
var ErrInvalidInput = errors.New("invalid simulation input")

// ErrCampaignOver is returned when stepping a session whose campaign ended.
var ErrCampaignOver = errors.New("campaign is complete")

// ErrCampaignRunning is returned when a final report is requested too early.
var ErrCampaignRunning = errors.New("campaign is still running")

// SimulationUseCase handles business logic for pollution control campaigns
type SimulationUseCase struct {
	repo         repository.SessionRepository
	scraper      *integration.ObservationScraper
	advisor      openai.AdvisorService
	campaignDays int
}

// NewSimulationUseCase creates a new simulation use case. The advisor may be
// nil, in which case advisory queries are unavailable. A campaignDays of zero
// or less falls back to the default campaign length.
func NewSimulationUseCase(repo repository.SessionRepository, scraper *integration.ObservationScraper, advisor openai.AdvisorService, campaignDays int) *SimulationUseCase {
	if campaignDays <= 0 {
		campaignDays = engine.CampaignDays
	}
	return &SimulationUseCase{
		repo:         repo,
		scraper:      scraper,
		advisor:      advisor,
		campaignDays: campaignDays,
	}
}

// CampaignDays returns the configured campaign length in days.
func (uc *SimulationUseCase) CampaignDays() int {
	return uc.campaignDays
}

// CreateSession starts a new campaign at initial basin conditions. When id is
// empty a fresh identifier is minted.
func (uc *SimulationUseCase) CreateSession(id string) (*entities.Session, error) {
	if id == "" {
		id = newSessionID()
	}
	s := engine.NewSession(id, time.Now().UTC())
	if err := uc.repo.CreateSession(s, engine.FirstRecord(s)); err != nil {
		return nil, fmt.Errorf("failed to create session: %v", err)
	}
	log.Printf("Started campaign %s", s.ID)
	return s, nil
}

// GetSession retrieves the current state of a campaign
func (uc *SimulationUseCase) GetSession(id string) (*entities.Session, error) {
	return uc.repo.GetSession(id)
}

// ListSessions returns all stored campaigns, most recently touched first
func (uc *SimulationUseCase) ListSessions() ([]entities.Session, error) {
	return uc.repo.ListSessions()
}

// DeleteSession removes a campaign together with its history
func (uc *SimulationUseCase) DeleteSession(id string) error {
	if _, err := uc.repo.GetSession(id); err != nil {
		return err
	}
	if err := uc.repo.DeleteSession(id); err != nil {
		return fmt.Errorf("failed to delete session %s: %v", id, err)
	}
	log.Printf("Deleted session %s", id)
	return nil
}

// GetOrCreateSession retrieves a campaign or starts one under the given id.
// Used by the chat front end where the session id is derived from the chat.
func (uc *SimulationUseCase) GetOrCreateSession(id string) (*entities.Session, error) {
	s, err := uc.repo.GetSession(id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return uc.CreateSession(id)
	}
	return s, err
}

// AdvanceDay applies one day of discharge and runoff inputs to the campaign
// and returns the updated session with the day's history record.
func (uc *SimulationUseCase) AdvanceDay(id string, factory, farm float64) (*entities.Session, *entities.DayRecord, error) {
	if err := engine.ValidateInputs(factory, farm); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	s, err := uc.repo.GetSession(id)
	if err != nil {
		return nil, nil, err
	}
	if engine.CampaignOver(s, uc.campaignDays) {
		return nil, nil, ErrCampaignOver
	}

	rec := engine.Step(s, factory, farm)
	s.UpdatedAt = time.Now().UTC()
	if err := uc.repo.UpdateSession(s, &rec); err != nil {
		return nil, nil, fmt.Errorf("failed to persist session %s: %v", id, err)
	}

	log.Printf("Session %s advanced to day %d (pollution=%.1f, DO=%.2f, health=%.1f)",
		s.ID, s.Day, s.Pollution, s.Oxygen, s.Health)
	return s, &rec, nil
}

// SetPolicies replaces the campaign's active policy interventions
func (uc *SimulationUseCase) SetPolicies(id string, policies entities.PolicySet) (*entities.Session, error) {
	s, err := uc.repo.GetSession(id)
	if err != nil {
		return nil, err
	}

	s.Policies = policies
	s.UpdatedAt = time.Now().UTC()
	if err := uc.repo.UpdateSession(s, nil); err != nil {
		return nil, fmt.Errorf("failed to persist policies for session %s: %v", id, err)
	}

	log.Printf("Session %s policies set: treatment=%t regulation=%t cleanup=%t",
		s.ID, policies.TreatmentPlant, policies.Regulation, policies.CleanupDrive)
	return s, nil
}

// ResetSession rewinds a campaign to day 1
func (uc *SimulationUseCase) ResetSession(id string) (*entities.Session, error) {
	if _, err := uc.repo.GetSession(id); err != nil {
		return nil, err
	}

	s := engine.NewSession(id, time.Now().UTC())
	if err := uc.repo.ResetSession(s, engine.FirstRecord(s)); err != nil {
		return nil, fmt.Errorf("failed to reset session %s: %v", id, err)
	}
	return s, nil
}

// GetHistory retrieves the campaign's day-by-day history
func (uc *SimulationUseCase) GetHistory(id string) ([]entities.DayRecord, error) {
	if _, err := uc.repo.GetSession(id); err != nil {
		return nil, err
	}
	return uc.repo.GetHistory(id)
}

// GetReport grades a completed campaign. It fails with ErrCampaignRunning
// until the campaign has run its full length.
func (uc *SimulationUseCase) GetReport(id string) (*entities.Report, error) {
	s, err := uc.repo.GetSession(id)
	if err != nil {
		return nil, err
	}
	if !engine.CampaignOver(s, uc.campaignDays) {
		return nil, ErrCampaignRunning
	}

	history, err := uc.repo.GetHistory(id)
	if err != nil {
		return nil, err
	}
	report := engine.Report(s, history)
	return &report, nil
}

// PurgeStaleSessions drops campaigns idle longer than maxIdle
func (uc *SimulationUseCase) PurgeStaleSessions(maxIdle time.Duration) error {
	_, err := uc.repo.PurgeIdleSessions(time.Now().UTC().Add(-maxIdle))
	return err
}

// RefreshObservations fetches fresh station readings and updates the repository
func (uc *SimulationUseCase) RefreshObservations() error {
	log.Println("Starting observation refresh process...")

	obs, err := uc.scraper.FetchObservations()
	if err != nil {
		return fmt.Errorf("failed to fetch observations: %v", err)
	}
	log.Printf("Successfully fetched %d observations", len(obs))

	if err := uc.repo.SaveObservations(obs); err != nil {
		return fmt.Errorf("failed to save observations to repository: %v", err)
	}
	return nil
}

// GetObservations returns observed readings from the last week along with the
// time of the most recent one
func (uc *SimulationUseCase) GetObservations() ([]entities.Observation, time.Time, error) {
	last, err := uc.repo.GetLastObservationTime()
	if err != nil {
		return nil, time.Time{}, err
	}
	obs, err := uc.repo.GetObservations(time.Now().UTC().Add(-7 * 24 * time.Hour))
	if err != nil {
		return nil, time.Time{}, err
	}
	return obs, last, nil
}

// HandleAdvisoryQuery interprets a user's free-text question about their
// campaign using the AI advisor and returns an answer string.
func (uc *SimulationUseCase) HandleAdvisoryQuery(ctx context.Context, id, query string) (string, error) {
	if uc.advisor == nil {
		return "The basin advisor is not available right now. Use /help to see commands.", nil
	}

	s, err := uc.repo.GetSession(id)
	if err != nil {
		return "", err
	}

	resp, err := uc.advisor.AdviseOnBasin(ctx, s, query)
	if err != nil {
		log.Printf("Error interpreting advisory query: %v", err)
		return "Sorry, I'm having trouble advising right now. Please try again later or use /help.", nil
	}

	msg := resp.UserMessage
	var suggestions []string
	if resp.SuggestTreatment {
		suggestions = append(suggestions, "build a treatment plant (/policy treatment on)")
	}
	if resp.SuggestRegulation {
		suggestions = append(suggestions, "enforce strict regulation (/policy regulation on)")
	}
	if resp.SuggestCleanup {
		suggestions = append(suggestions, "launch a cleanup drive (/policy cleanup on)")
	}
	if resp.SuggestLowerInputs {
		suggestions = append(suggestions, "lower your discharge and runoff inputs")
	}
	if len(suggestions) > 0 {
		msg += "\n\nSuggested next moves:"
		for _, sug := range suggestions {
			msg += "\n• " + sug
		}
	}
	return msg, nil
}

func newSessionID() string {
	buf := make([]byte, 12)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
