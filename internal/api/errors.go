package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/simverse/riversim/internal/repository"
	"github.com/simverse/riversim/internal/usecases"
)

// ErrorResponse is the JSON envelope for all API errors.
type ErrorResponse struct {
	Message ErrorMessage `json:"message"`
}

// ErrorMessage carries a human-readable reason and, optionally, advice on how
// to fix the request. The cause stays server-side.
type ErrorMessage struct {
	Reason string `json:"reason"`
	Advice string `json:"advice,omitempty"`
	Cause  error  `json:"-"`
}

func (e ErrorMessage) Error() string {
	if e.Cause != nil {
		return e.Reason + ": " + e.Cause.Error()
	}
	return e.Reason
}

func (e ErrorMessage) Unwrap() error {
	return e.Cause
}

func newHTTPError(code int, msg ErrorMessage) *echo.HTTPError {
	return echo.NewHTTPError(code, ErrorResponse{Message: msg}).SetInternal(msg)
}

// BadRequest reports a malformed or out-of-range request.
func BadRequest(reason, advice string, cause error) *echo.HTTPError {
	return newHTTPError(http.StatusBadRequest, ErrorMessage{Reason: reason, Advice: advice, Cause: cause})
}

// NotFound reports an unknown session.
func NotFound(reason string) *echo.HTTPError {
	return newHTTPError(http.StatusNotFound, ErrorMessage{Reason: reason, Advice: "create a session with POST /api/sessions"})
}

// Conflict reports an operation out of phase with the campaign.
func Conflict(reason, advice string) *echo.HTTPError {
	return newHTTPError(http.StatusConflict, ErrorMessage{Reason: reason, Advice: advice})
}

// InternalServerError hides the cause behind an opaque reason.
func InternalServerError(cause error) *echo.HTTPError {
	return newHTTPError(http.StatusInternalServerError, ErrorMessage{Reason: "internal server error", Cause: cause})
}

// serviceError maps use case failures onto the API error taxonomy.
func serviceError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return NotFound("session not found")
	case errors.Is(err, usecases.ErrInvalidInput):
		return BadRequest("invalid input", "factory_input and farm_input must be between 0 and 10", err)
	case errors.Is(err, usecases.ErrCampaignOver):
		return Conflict("campaign is complete", "fetch the final report, or reset the session to play again")
	case errors.Is(err, usecases.ErrCampaignRunning):
		return Conflict("campaign is still running", "the final report is issued once the campaign reaches its final day")
	default:
		return InternalServerError(err)
	}
}
