package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jgoulah/gridforecast/pkg/models"
	_ "modernc.org/sqlite"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		building_id TEXT NOT NULL,
		site_id TEXT NOT NULL,
		date TEXT NOT NULL,
		electricity_usage REAL,
		sqm REAL,
		air_temperature REAL,
		dew_temperature REAL,
		sea_lvl_pressure REAL,
		wind_speed REAL,
		created_at TEXT NOT NULL,
		UNIQUE(building_id, date)
	);
	CREATE INDEX IF NOT EXISTS idx_obs_building ON observations(building_id);
	CREATE INDEX IF NOT EXISTS idx_obs_date ON observations(date);
	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		building_id TEXT NOT NULL,
		date TEXT NOT NULL,
		predicted_kwh REAL NOT NULL,
		model_run_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		published INTEGER DEFAULT 0,
		UNIQUE(building_id, date, model_run_id)
	);
	CREATE INDEX IF NOT EXISTS idx_pred_building ON predictions(building_id);
	CREATE INDEX IF NOT EXISTS idx_pred_published ON predictions(published);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertObservation inserts a merged observation, ignoring duplicates on
// (building_id, date). The dedup constraint is what guarantees the
// no-duplicate-dates invariant the feature builder depends on.
func (db *DB) InsertObservation(o *models.Observation) error {
	query := `
	INSERT OR IGNORE INTO observations
	(building_id, site_id, date, electricity_usage, sqm, air_temperature, dew_temperature, sea_lvl_pressure, wind_speed, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := time.Now().UTC().Format(time.RFC3339)
	_, err := db.conn.Exec(query,
		o.BuildingID, o.SiteID, o.Date.Format("2006-01-02"),
		nullable(o.ElectricityUsage), nullable(o.Sqm),
		nullable(o.AirTemperature), nullable(o.DewTemperature),
		nullable(o.SeaLvlPressure), nullable(o.WindSpeed),
		createdAt)
	if err != nil {
		return fmt.Errorf("inserting observation: %w", err)
	}

	return nil
}

// ListObservations retrieves all observations ordered by (building_id, date),
// the ordering the lag computation requires.
func (db *DB) ListObservations() ([]models.Observation, error) {
	query := `
	SELECT building_id, site_id, date, electricity_usage, sqm, air_temperature, dew_temperature, sea_lvl_pressure, wind_speed
	FROM observations
	ORDER BY building_id, date
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying observations: %w", err)
	}
	defer rows.Close()

	var results []models.Observation
	for rows.Next() {
		var o models.Observation
		var dateStr string
		var usage, sqm, airTemp, dewTemp, pressure, wind sql.NullFloat64

		if err := rows.Scan(&o.BuildingID, &o.SiteID, &dateStr, &usage, &sqm, &airTemp, &dewTemp, &pressure, &wind); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		o.Date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing date: %w", err)
		}

		o.ElectricityUsage = fromNullable(usage)
		o.Sqm = fromNullable(sqm)
		o.AirTemperature = fromNullable(airTemp)
		o.DewTemperature = fromNullable(dewTemp)
		o.SeaLvlPressure = fromNullable(pressure)
		o.WindSpeed = fromNullable(wind)

		results = append(results, o)
	}

	return results, rows.Err()
}

// CountObservations returns the number of stored observations
func (db *DB) CountObservations() (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM observations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting observations: %w", err)
	}
	return count, nil
}

// InsertPrediction stores a model output, ignoring duplicates for the same
// (building, date, run)
func (db *DB) InsertPrediction(p *models.Prediction) error {
	query := `
	INSERT OR IGNORE INTO predictions (building_id, date, predicted_kwh, model_run_id, created_at)
	VALUES (?, ?, ?, ?, ?)
	`

	createdAt := time.Now().UTC().Format(time.RFC3339)
	_, err := db.conn.Exec(query, p.BuildingID, p.Date.Format("2006-01-02"), p.PredictedKWh, p.ModelRunID, createdAt)
	if err != nil {
		return fmt.Errorf("inserting prediction: %w", err)
	}

	return nil
}

// ListPredictions retrieves all stored predictions ordered by building and date
func (db *DB) ListPredictions() ([]models.Prediction, error) {
	return db.listPredictions(false)
}

// ListUnpublishedPredictions retrieves predictions not yet sent to the broker
func (db *DB) ListUnpublishedPredictions() ([]models.Prediction, error) {
	return db.listPredictions(true)
}

func (db *DB) listPredictions(unpublishedOnly bool) ([]models.Prediction, error) {
	query := `
	SELECT id, building_id, date, predicted_kwh, model_run_id, created_at
	FROM predictions
	`
	if unpublishedOnly {
		query += ` WHERE published = 0`
	}
	query += ` ORDER BY building_id, date`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying predictions: %w", err)
	}
	defer rows.Close()

	var results []models.Prediction
	for rows.Next() {
		var p models.Prediction
		var dateStr, createdStr string

		if err := rows.Scan(&p.ID, &p.BuildingID, &dateStr, &p.PredictedKWh, &p.ModelRunID, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		p.Date, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing date: %w", err)
		}
		p.CreatedAt, err = time.Parse(time.RFC3339, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		results = append(results, p)
	}

	return results, rows.Err()
}

// MarkPublished marks a prediction as published
func (db *DB) MarkPublished(id int) error {
	query := `UPDATE predictions SET published = 1 WHERE id = ?`
	_, err := db.conn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("marking record as published: %w", err)
	}
	return nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
