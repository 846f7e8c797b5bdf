package api

import (
	"embed"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed static
var staticFiles embed.FS

const sessionParam = "sessionId"

// Register wires the REST routes and the embedded dashboard onto the echo
// instance.
func Register(e *echo.Echo, svc SimulationService) {
	g := e.Group("/api")
	g.POST("/sessions", CreateSessionHandler(svc))
	g.GET("/sessions", ListSessionsHandler(svc))
	g.GET("/sessions/:"+sessionParam, GetSessionHandler(svc, sessionParam))
	g.DELETE("/sessions/:"+sessionParam, DeleteSessionHandler(svc, sessionParam))
	g.POST("/sessions/:"+sessionParam+"/step", StepSessionHandler(svc, sessionParam))
	g.PUT("/sessions/:"+sessionParam+"/policies", SetPoliciesHandler(svc, sessionParam))
	g.POST("/sessions/:"+sessionParam+"/reset", ResetSessionHandler(svc, sessionParam))
	g.GET("/sessions/:"+sessionParam+"/history", GetHistoryHandler(svc, sessionParam))
	g.GET("/sessions/:"+sessionParam+"/report", GetReportHandler(svc, sessionParam))
	g.GET("/sessions/:"+sessionParam+"/chart.png", GetChartHandler(svc, sessionParam))
	g.GET("/observations", GetObservationsHandler(svc))

	e.GET("/", func(c echo.Context) error {
		page, err := staticFiles.ReadFile("static/index.html")
		if err != nil {
			return InternalServerError(err)
		}
		return c.HTMLBlob(http.StatusOK, page)
	})
}
