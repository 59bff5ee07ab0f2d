package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/gridforecast/pkg/models"
)

// ObservationColumns is the column contract of the merged (interim) table.
var ObservationColumns = []string{
	"building_id", "site_id", "date", "electricity_usage",
	"sqm", "airTemperature", "dewTemperature", "seaLvlPressure", "windSpeed",
}

// WriteObservations writes merged observations as an interim CSV using the
// ObservationColumns contract. Nil values become blank cells.
func WriteObservations(path string, obs []models.Observation) error {
	frame := &Frame{Columns: ObservationColumns, Rows: make([][]string, 0, len(obs))}
	for _, o := range obs {
		frame.Rows = append(frame.Rows, []string{
			o.BuildingID,
			o.SiteID,
			o.Date.Format("2006-01-02"),
			formatOptional(o.ElectricityUsage),
			formatOptional(o.Sqm),
			formatOptional(o.AirTemperature),
			formatOptional(o.DewTemperature),
			formatOptional(o.SeaLvlPressure),
			formatOptional(o.WindSpeed),
		})
	}
	return frame.WriteCSV(path)
}

// ReadObservations reads an interim CSV back into observations. Rows keep
// the order they appear in; an unparseable date is an error rather than a
// silent default.
func ReadObservations(path string) ([]models.Observation, error) {
	frame, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}

	cols := indexColumns(frame.Columns)
	for _, required := range []string{"building_id", "site_id", "date", "electricity_usage"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%s: missing required column %q", path, required)
		}
	}

	obs := make([]models.Observation, 0, frame.Len())
	for i, row := range frame.Rows {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(row[cols["date"]]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: parsing date: %w", path, i+1, err)
		}

		o := models.Observation{
			BuildingID: strings.TrimSpace(row[cols["building_id"]]),
			SiteID:     strings.TrimSpace(row[cols["site_id"]]),
			Date:       date,
		}
		o.ElectricityUsage = optionalFloat(row[cols["electricity_usage"]])
		if idx, ok := cols["sqm"]; ok {
			o.Sqm = optionalFloat(row[idx])
		}
		if idx, ok := cols["airTemperature"]; ok {
			o.AirTemperature = optionalFloat(row[idx])
		}
		if idx, ok := cols["dewTemperature"]; ok {
			o.DewTemperature = optionalFloat(row[idx])
		}
		if idx, ok := cols["seaLvlPressure"]; ok {
			o.SeaLvlPressure = optionalFloat(row[idx])
		}
		if idx, ok := cols["windSpeed"]; ok {
			o.WindSpeed = optionalFloat(row[idx])
		}
		obs = append(obs, o)
	}

	return obs, nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
