package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/simverse/riversim/internal/entities"
)

// GetChartHandler renders the campaign's historical trends as a PNG:
// pollution index and dissolved oxygen on the primary axis, aquatic health on
// the secondary.
func GetChartHandler(svc SimulationService, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param(paramKey)
		records, err := svc.GetHistory(id)
		if err != nil {
			return serviceError(err)
		}

		buf, err := renderTrendChart(id, records)
		if err != nil {
			return InternalServerError(fmt.Errorf("failed to render chart for session %s: %v", id, err))
		}
		return c.Blob(http.StatusOK, "image/png", buf.Bytes())
	}
}

func renderTrendChart(id string, records []entities.DayRecord) (*bytes.Buffer, error) {
	days := make([]float64, len(records))
	pollution := make([]float64, len(records))
	oxygen := make([]float64, len(records))
	health := make([]float64, len(records))
	for i, rec := range records {
		days[i] = float64(rec.Day)
		pollution[i] = rec.Pollution
		oxygen[i] = rec.Oxygen
		health[i] = rec.Health
	}

	// go-chart cannot draw a series with a single X value; duplicate the
	// point one day out so a fresh campaign still renders.
	if len(days) == 1 {
		days = append(days, days[0]+1)
		pollution = append(pollution, pollution[0])
		oxygen = append(oxygen, oxygen[0])
		health = append(health, health[0])
	}

	lineStyle := func(col drawing.Color) chart.Style {
		return chart.Style{StrokeColor: col, StrokeWidth: 2}
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("Campaign %s", id),
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 32}},
		Width:      800,
		Height:     400,
		XAxis:      chart.XAxis{Name: "Day"},
		YAxis:      chart.YAxis{Name: "Pollution / DO (mg/L)"},
		YAxisSecondary: chart.YAxis{
			Name:  "Health (%)",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Pollution",
				XValues: days,
				YValues: pollution,
				Style:   lineStyle(drawing.Color{R: 0xff, G: 0x52, B: 0x52, A: 0xff}),
			},
			chart.ContinuousSeries{
				Name:    "Oxygen",
				XValues: days,
				YValues: oxygen,
				Style:   lineStyle(drawing.Color{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}),
			},
			chart.ContinuousSeries{
				Name:    "Health",
				XValues: days,
				YValues: health,
				YAxis:   chart.YAxisSecondary,
				Style:   lineStyle(drawing.Color{R: 0x4d, G: 0xb6, B: 0xac, A: 0xff}),
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return &buf, nil
}
