package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadMetadata(t *testing.T) {
	path := writeFile(t, t.TempDir(), "metadata.csv",
		"building_id,site_id,sqm,industry\n"+
			"bldg_a,site_1,1200.5,Education\n"+
			"bldg_b,site_1,,Office\n")

	meta, err := LoadMetadata(path)
	require.NoError(t, err)
	require.Len(t, meta, 2)

	require.NotNil(t, meta["bldg_a"].Sqm)
	assert.Equal(t, 1200.5, *meta["bldg_a"].Sqm)
	assert.Equal(t, "site_1", meta["bldg_a"].SiteID)
	assert.Nil(t, meta["bldg_b"].Sqm, "blank sqm stays nil")
}

func TestLoadMetadata_MissingColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "metadata.csv", "building_id,sqm\nbldg_a,12\n")

	_, err := LoadMetadata(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site_id")
}

func TestLoadWeather(t *testing.T) {
	path := writeFile(t, t.TempDir(), "weather.csv",
		"site_id,timestamp,airTemperature,dewTemperature,seaLvlPressure,windSpeed\n"+
			"site_1,02-01-2024 00:00,5.5,1.2,1013.2,3.4\n"+
			"site_1,03-01-2024 00:00,,2.0,1010.0,\n")

	weather, err := LoadWeather(path)
	require.NoError(t, err)
	require.Len(t, weather, 2)

	key := WeatherKey{SiteID: "site_1", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	w, ok := weather[key]
	require.True(t, ok)
	require.NotNil(t, w.AirTemperature)
	assert.Equal(t, 5.5, *w.AirTemperature)

	key.Date = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	w = weather[key]
	assert.Nil(t, w.AirTemperature)
	assert.Nil(t, w.WindSpeed)
	require.NotNil(t, w.DewTemperature)
	assert.Equal(t, 2.0, *w.DewTemperature)
}

func TestLoadWeather_BadTimestamp(t *testing.T) {
	path := writeFile(t, t.TempDir(), "weather.csv",
		"site_id,timestamp,airTemperature\nsite_1,2024-01-02,5.5\n")

	_, err := LoadWeather(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp")
}

func TestLoadElectricity_MeltsWideFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "electricity.csv",
		"building_name,site_id,01-01-2024,02-01-2024\n"+
			"bldg_a,site_1,10.5,\n"+
			"bldg_b,site_1,7.0,8.0\n")

	records, err := LoadElectricity(path)
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "bldg_a", records[0].BuildingID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
	require.NotNil(t, records[0].Usage)
	assert.Equal(t, 10.5, *records[0].Usage)

	// The blank cell melts to a record with a nil usage.
	assert.Nil(t, records[1].Usage)
}

func TestLoadElectricity_NonDateColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "electricity.csv",
		"building_name,site_id,notadate\nbldg_a,site_1,1\n")

	_, err := LoadElectricity(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notadate")
}

func TestMerge_JoinsAndSorts(t *testing.T) {
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jan2 := jan1.AddDate(0, 0, 1)
	ten, seven, temp, sqm := 10.0, 7.0, 5.5, 1200.0

	usage := []UsageRecord{
		{BuildingID: "bldg_b", SiteID: "site_1", Date: jan1, Usage: &seven},
		{BuildingID: "bldg_a", SiteID: "site_1", Date: jan2, Usage: nil},
		{BuildingID: "bldg_a", SiteID: "site_1", Date: jan1, Usage: &ten},
	}
	meta := map[string]Metadata{
		"bldg_a": {SiteID: "site_1", Sqm: &sqm},
	}
	weather := map[WeatherKey]Weather{
		{SiteID: "site_1", Date: jan1}: {AirTemperature: &temp},
	}

	obs := Merge(usage, meta, weather)
	require.Len(t, obs, 3)

	// Sorted by (building_id, date).
	assert.Equal(t, "bldg_a", obs[0].BuildingID)
	assert.Equal(t, jan1, obs[0].Date)
	assert.Equal(t, "bldg_a", obs[1].BuildingID)
	assert.Equal(t, jan2, obs[1].Date)
	assert.Equal(t, "bldg_b", obs[2].BuildingID)

	// Left joins: metadata and weather attach where keys match, stay nil
	// where they don't.
	require.NotNil(t, obs[0].Sqm)
	assert.Equal(t, 1200.0, *obs[0].Sqm)
	require.NotNil(t, obs[0].AirTemperature)
	assert.Equal(t, 5.5, *obs[0].AirTemperature)
	assert.Nil(t, obs[1].AirTemperature, "no weather for jan 2")
	assert.Nil(t, obs[2].Sqm, "bldg_b has no metadata")
	assert.Nil(t, obs[1].ElectricityUsage, "blank usage survives the merge as nil")
}

func TestObservations_CSVRoundTrip(t *testing.T) {
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ten, temp := 10.0, 5.5
	obs := []UsageRecord{
		{BuildingID: "bldg_a", SiteID: "site_1", Date: jan1, Usage: &ten},
		{BuildingID: "bldg_a", SiteID: "site_1", Date: jan1.AddDate(0, 0, 1)},
	}
	merged := Merge(obs, nil, map[WeatherKey]Weather{
		{SiteID: "site_1", Date: jan1}: {AirTemperature: &temp},
	})

	path := filepath.Join(t.TempDir(), "interim.csv")
	require.NoError(t, WriteObservations(path, merged))

	got, err := ReadObservations(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, merged[0].BuildingID, got[0].BuildingID)
	assert.Equal(t, merged[0].Date, got[0].Date)
	require.NotNil(t, got[0].ElectricityUsage)
	assert.Equal(t, 10.0, *got[0].ElectricityUsage)
	require.NotNil(t, got[0].AirTemperature)
	assert.Equal(t, 5.5, *got[0].AirTemperature)
	assert.Nil(t, got[1].ElectricityUsage)
	assert.Nil(t, got[1].AirTemperature)
}
