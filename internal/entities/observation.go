package entities

import (
	"time"
)

// Observation represents a single observed reading from a real monitoring
// station, shown alongside simulated conditions for context.
type Observation struct {
	ID         int64     `json:"id"`
	River      string    `json:"river"`       // name of the river
	Station    string    `json:"station"`     // monitoring station name
	WaterLevel string    `json:"water_level"` // current water level in cm
	WaterTemp  string    `json:"water_temp"`  // water temperature in °C
	Timestamp  time.Time `json:"timestamp"`   // when the reading was recorded
}
