package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/simverse/riversim/internal/entities"
)

// SimulationService is the slice of the use case layer the REST handlers
// need. *usecases.SimulationUseCase satisfies it.
type SimulationService interface {
	CampaignDays() int
	CreateSession(id string) (*entities.Session, error)
	GetSession(id string) (*entities.Session, error)
	ListSessions() ([]entities.Session, error)
	DeleteSession(id string) error
	AdvanceDay(id string, factory, farm float64) (*entities.Session, *entities.DayRecord, error)
	SetPolicies(id string, policies entities.PolicySet) (*entities.Session, error)
	ResetSession(id string) (*entities.Session, error)
	GetHistory(id string) ([]entities.DayRecord, error)
	GetReport(id string) (*entities.Report, error)
	GetObservations() ([]entities.Observation, time.Time, error)
}

// CreateSessionHandler starts a new campaign.
func CreateSessionHandler(svc SimulationService) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := svc.CreateSession("")
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(http.StatusCreated, ComposeSessionDetail(s, svc.CampaignDays()))
	}
}

// ListSessionsHandler returns every stored campaign.
func ListSessionsHandler(svc SimulationService) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessions, err := svc.ListSessions()
		if err != nil {
			return serviceError(err)
		}
		details := make([]SessionDetail, 0, len(sessions))
		for i := range sessions {
			details = append(details, ComposeSessionDetail(&sessions[i], svc.CampaignDays()))
		}
		return c.JSON(http.StatusOK, SessionListResponse{Sessions: details})
	}
}

// DeleteSessionHandler removes a campaign and its history.
func DeleteSessionHandler(svc SimulationService, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.DeleteSession(c.Param(paramKey)); err != nil {
			return serviceError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// GetSessionHandler returns the current campaign snapshot.
func GetSessionHandler(svc SimulationService, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := svc.GetSession(c.Param(paramKey))
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(http.StatusOK, ComposeSessionDetail(s, svc.CampaignDays()))
	}
}

// StepSessionHandler advances the campaign by one day.
func StepSessionHandler(svc SimulationService, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req StepRequest
		if err := c.Bind(&req); err != nil {
			return BadRequest("malformed request body", "send JSON with numeric factory_input and farm_input", err)
		}
		if req.FactoryInput == nil || req.FarmInput == nil {
			return BadRequest("missing input", "both factory_input and farm_input are required", nil)
		}

		s, rec, err := svc.AdvanceDay(c.Param(paramKey), *req.FactoryInput, *req.FarmInput)
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(http.StatusOK, StepResponse{
			Session: ComposeSessionDetail(s, svc.CampaignDays()),
			Record:  *rec,
		})
	}
}

// SetPoliciesHandler replaces the campaign's policy interventions.
func SetPoliciesHandler(svc SimulationService, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req PolicyRequest
		if err := c.Bind(&req); err != nil {
			return BadRequest("malformed request body", "send JSON with boolean policy fields", err)
		}

		s, err := svc.SetPolicies(c.Param(paramKey), entities.PolicySet{
			TreatmentPlant: req.TreatmentPlant,
			Regulation:     req.Regulation,
			CleanupDrive:   req.CleanupDrive,
		})
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(http.StatusOK, ComposeSessionDetail(s, svc.CampaignDays()))
	}
}

// ResetSessionHandler rewinds the campaign to day 1.
func ResetSessionHandler(svc SimulationService, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := svc.ResetSession(c.Param(paramKey))
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(http.StatusOK, ComposeSessionDetail(s, svc.CampaignDays()))
	}
}

// GetHistoryHandler returns the campaign's day-by-day trace.
func GetHistoryHandler(svc SimulationService, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param(paramKey)
		records, err := svc.GetHistory(id)
		if err != nil {
			return serviceError(err)
		}
		if records == nil {
			records = []entities.DayRecord{}
		}
		return c.JSON(http.StatusOK, HistoryResponse{SessionID: id, Records: records})
	}
}

// GetReportHandler returns the final sustainability report.
func GetReportHandler(svc SimulationService, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		report, err := svc.GetReport(c.Param(paramKey))
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(http.StatusOK, report)
	}
}

// GetObservationsHandler returns recent observed station readings.
func GetObservationsHandler(svc SimulationService) echo.HandlerFunc {
	return func(c echo.Context) error {
		obs, last, err := svc.GetObservations()
		if err != nil {
			return serviceError(err)
		}
		if obs == nil {
			obs = []entities.Observation{}
		}
		return c.JSON(http.StatusOK, ObservationsResponse{LastUpdate: last, Observations: obs})
	}
}
