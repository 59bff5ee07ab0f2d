package models

import "time"

// Observation is one merged (building, date) measurement: daily electricity
// usage joined with building metadata and the site's weather for that day.
// Optional columns are pointers; nil means the value was absent in the
// source data.
type Observation struct {
	BuildingID       string     `json:"building_id"`
	SiteID           string     `json:"site_id"`
	Date             time.Time  `json:"date"` // calendar date, no time-of-day
	ElectricityUsage *float64   `json:"electricity_usage"`
	Sqm              *float64   `json:"sqm"`
	AirTemperature   *float64   `json:"airTemperature"`
	DewTemperature   *float64   `json:"dewTemperature"`
	SeaLvlPressure   *float64   `json:"seaLvlPressure"`
	WindSpeed        *float64   `json:"windSpeed"`
}

// FeatureRow is an Observation plus the derived model inputs. After the
// feature builder has run, ElectricityUsage is always non-nil.
type FeatureRow struct {
	Observation

	Month     int // 1-12
	DayOfWeek int // Monday=0 .. Sunday=6
	IsWeekend int // 1 for Saturday/Sunday
	Lag1      float64
	Lag7      float64
}

// Prediction is a stored model output for one (building, date).
type Prediction struct {
	ID           int       `json:"id"`
	BuildingID   string    `json:"building_id"`
	Date         time.Time `json:"date"`
	PredictedKWh float64   `json:"predicted_kwh"`
	ModelRunID   string    `json:"model_run_id"`
	CreatedAt    time.Time `json:"created_at"`
}
