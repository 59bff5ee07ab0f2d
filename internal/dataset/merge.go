package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/gridforecast/pkg/models"
)

// DateFormat is the calendar-date layout used across the raw files.
const DateFormat = "02-01-2006"

// weatherTimeFormat is the timestamp layout in the weather export.
const weatherTimeFormat = "02-01-2006 15:04"

// Metadata holds the static attributes of one building.
type Metadata struct {
	SiteID string
	Sqm    *float64
}

// Weather holds one site's weather observations for one date.
type Weather struct {
	AirTemperature *float64
	DewTemperature *float64
	SeaLvlPressure *float64
	WindSpeed      *float64
}

// WeatherKey identifies a weather record by site and calendar date.
type WeatherKey struct {
	SiteID string
	Date   time.Time
}

// UsageRecord is one (building, date) electricity reading in long form.
type UsageRecord struct {
	BuildingID string
	SiteID     string
	Date       time.Time
	Usage      *float64 // nil when the cell was blank
}

// LoadMetadata parses the building metadata CSV. Required columns are
// building_id and site_id; sqm is optional. Any other columns are ignored.
func LoadMetadata(path string) (map[string]Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening metadata: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading metadata header: %w", err)
	}

	cols := indexColumns(header)
	buildingIdx, ok := cols["building_id"]
	if !ok {
		return nil, fmt.Errorf("metadata: missing required column %q", "building_id")
	}
	siteIdx, ok := cols["site_id"]
	if !ok {
		return nil, fmt.Errorf("metadata: missing required column %q", "site_id")
	}
	sqmIdx, hasSqm := cols["sqm"]

	meta := make(map[string]Metadata)
	lineNum := 1
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading metadata line %d: %w", lineNum, err)
		}

		buildingID := strings.TrimSpace(record[buildingIdx])
		if buildingID == "" {
			continue
		}

		m := Metadata{SiteID: strings.TrimSpace(record[siteIdx])}
		if hasSqm {
			m.Sqm = optionalFloat(record[sqmIdx])
		}
		meta[buildingID] = m
	}

	return meta, nil
}

// LoadWeather parses the weather CSV keyed by (site_id, date). The timestamp
// column uses the DD-MM-YYYY HH:MM layout; the time-of-day portion is
// discarded since observations are daily.
func LoadWeather(path string) (map[WeatherKey]Weather, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening weather: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading weather header: %w", err)
	}

	cols := indexColumns(header)
	for _, required := range []string{"site_id", "timestamp"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("weather: missing required column %q", required)
		}
	}

	weather := make(map[WeatherKey]Weather)
	lineNum := 1
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading weather line %d: %w", lineNum, err)
		}

		ts, err := time.Parse(weatherTimeFormat, strings.TrimSpace(record[cols["timestamp"]]))
		if err != nil {
			return nil, fmt.Errorf("weather line %d: parsing timestamp: %w", lineNum, err)
		}

		key := WeatherKey{
			SiteID: strings.TrimSpace(record[cols["site_id"]]),
			Date:   truncateToDate(ts),
		}

		w := Weather{}
		if idx, ok := cols["airTemperature"]; ok {
			w.AirTemperature = optionalFloat(record[idx])
		}
		if idx, ok := cols["dewTemperature"]; ok {
			w.DewTemperature = optionalFloat(record[idx])
		}
		if idx, ok := cols["seaLvlPressure"]; ok {
			w.SeaLvlPressure = optionalFloat(record[idx])
		}
		if idx, ok := cols["windSpeed"]; ok {
			w.WindSpeed = optionalFloat(record[idx])
		}
		weather[key] = w
	}

	return weather, nil
}

// LoadElectricity parses the wide-format usage CSV (one column per date) and
// melts it into long form, one record per (building, date). Blank cells are
// kept as records with a nil usage so downstream cleaning sees them.
func LoadElectricity(path string) ([]UsageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening electricity: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading electricity header: %w", err)
	}

	cols := indexColumns(header)
	buildingIdx, ok := cols["building_name"]
	if !ok {
		return nil, fmt.Errorf("electricity: missing required column %q", "building_name")
	}
	siteIdx, ok := cols["site_id"]
	if !ok {
		return nil, fmt.Errorf("electricity: missing required column %q", "site_id")
	}

	// Every remaining column is a date.
	type dateCol struct {
		idx  int
		date time.Time
	}
	var dateCols []dateCol
	for i, name := range header {
		if i == buildingIdx || i == siteIdx {
			continue
		}
		d, err := time.Parse(DateFormat, strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("electricity: column %q is not a date: %w", name, err)
		}
		dateCols = append(dateCols, dateCol{idx: i, date: d})
	}
	if len(dateCols) == 0 {
		return nil, fmt.Errorf("electricity: no date columns found")
	}

	var records []UsageRecord
	lineNum := 1
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading electricity line %d: %w", lineNum, err)
		}

		buildingID := strings.TrimSpace(record[buildingIdx])
		siteID := strings.TrimSpace(record[siteIdx])
		for _, dc := range dateCols {
			records = append(records, UsageRecord{
				BuildingID: buildingID,
				SiteID:     siteID,
				Date:       dc.date,
				Usage:      optionalFloat(record[dc.idx]),
			})
		}
	}

	return records, nil
}

// Merge left-joins usage records with building metadata (by building) and
// weather (by site and date), returning observations sorted by
// (building_id, date). That ordering is what the lag computation downstream
// relies on.
func Merge(usage []UsageRecord, meta map[string]Metadata, weather map[WeatherKey]Weather) []models.Observation {
	obs := make([]models.Observation, 0, len(usage))
	for _, u := range usage {
		o := models.Observation{
			BuildingID:       u.BuildingID,
			SiteID:           u.SiteID,
			Date:             u.Date,
			ElectricityUsage: u.Usage,
		}
		if m, ok := meta[u.BuildingID]; ok {
			o.Sqm = m.Sqm
		}
		if w, ok := weather[WeatherKey{SiteID: u.SiteID, Date: u.Date}]; ok {
			o.AirTemperature = w.AirTemperature
			o.DewTemperature = w.DewTemperature
			o.SeaLvlPressure = w.SeaLvlPressure
			o.WindSpeed = w.WindSpeed
		}
		obs = append(obs, o)
	}

	sort.SliceStable(obs, func(i, j int) bool {
		if obs[i].BuildingID != obs[j].BuildingID {
			return obs[i].BuildingID < obs[j].BuildingID
		}
		return obs[i].Date.Before(obs[j].Date)
	})

	return obs
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	return cols
}

func optionalFloat(cell string) *float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return &v
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
