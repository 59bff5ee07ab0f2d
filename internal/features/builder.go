package features

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/jgoulah/gridforecast/internal/dataset"
	"github.com/jgoulah/gridforecast/internal/logging"
	"github.com/jgoulah/gridforecast/pkg/models"
)

// Target is the regression target column.
const Target = "electricity_usage"

// Predictors is the fixed, ordered model-input contract. It is shared with
// the trainer, persisted alongside the model artifact, and must never change
// silently between training and prediction.
var Predictors = []string{
	"month", "day_of_week", "is_weekend",
	"airTemperature", "dewTemperature", "seaLvlPressure", "windSpeed",
	"sqm", "lag_1", "lag_7",
}

// ErrEmptyTable is returned when cleaning leaves no usable rows, or when the
// input is empty to begin with.
var ErrEmptyTable = errors.New("no rows available for feature building")

// Bounds are the IQR outlier limits computed during a Build pass.
type Bounds struct {
	Lower float64
	Upper float64
}

// Builder turns merged observations into a clean, leakage-aware training
// table.
type Builder struct {
	log *logging.Logger
}

func NewBuilder(log *logging.Logger) *Builder {
	return &Builder{log: log}
}

// Build applies the cleaning sequence in its fixed order: time features,
// positional lag features with edge-row drop, a single global IQR outlier
// pass over the target, then zero-fill of missing predictor values.
//
// Precondition: rows must arrive sorted by (building_id, date) with no
// duplicate dates per building. Lags are a positional shift over the table
// as given, not a date-aware shift; Build does not verify the ordering.
// database.ListObservations and dataset.Merge both return rows in the
// required order.
//
// The input slice is not modified. The returned predictor list is always
// exactly Predictors.
func (b *Builder) Build(obs []models.Observation) ([]models.FeatureRow, []string, error) {
	if len(obs) == 0 {
		return nil, nil, ErrEmptyTable
	}

	rows, err := timeFeatures(obs)
	if err != nil {
		return nil, nil, err
	}

	rows = lagFeatures(rows)
	b.log.Debug("[features] %d rows after lag computation (dropped %d edge/gap rows)",
		len(rows), len(obs)-len(rows))
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: every row lost to lag computation", ErrEmptyTable)
	}

	rows, bounds := removeOutliers(rows)
	b.log.Debug("[features] %d rows within IQR bounds [%.4f, %.4f]", len(rows), bounds.Lower, bounds.Upper)
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: every row removed as an outlier", ErrEmptyTable)
	}

	fillMissing(rows)

	b.log.Info("[features] built %d feature rows from %d observations", len(rows), len(obs))
	return rows, Predictors, nil
}

// timeFeatures derives month, day_of_week (Monday=0) and is_weekend from the
// date. A zero date is a data-quality error, not a silent default.
func timeFeatures(obs []models.Observation) ([]models.FeatureRow, error) {
	rows := make([]models.FeatureRow, len(obs))
	for i, o := range obs {
		if o.Date.IsZero() {
			return nil, fmt.Errorf("row %d (building %q): missing or unparseable date", i+1, o.BuildingID)
		}

		dow := (int(o.Date.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
		rows[i] = models.FeatureRow{
			Observation: o,
			Month:       int(o.Date.Month()),
			DayOfWeek:   dow,
		}
		if dow >= 5 {
			rows[i].IsWeekend = 1
		}
	}
	return rows, nil
}

// lagFeatures assigns lag_1 and lag_7 by pure positional shift and drops
// every row whose lags are undefined: the first seven rows of the table, and
// any row within lag reach of a missing target.
func lagFeatures(rows []models.FeatureRow) []models.FeatureRow {
	kept := make([]models.FeatureRow, 0, len(rows))
	for i := range rows {
		if i < 7 {
			continue
		}
		prev1 := rows[i-1].ElectricityUsage
		prev7 := rows[i-7].ElectricityUsage
		if prev1 == nil || prev7 == nil {
			continue
		}
		row := rows[i]
		row.Lag1 = *prev1
		row.Lag7 = *prev7
		kept = append(kept, row)
	}
	return kept
}

// removeOutliers drops rows whose target lies outside Q1-1.5*IQR..Q3+1.5*IQR.
// The quartiles are computed once over the whole post-lag-drop table, not per
// building; that global pass is a deliberate design choice carried over from
// the original cleaning step. Rows with a missing target fail the bounds
// check and are dropped here, so the target is never nil afterwards.
func removeOutliers(rows []models.FeatureRow) ([]models.FeatureRow, Bounds) {
	targets := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.ElectricityUsage != nil {
			targets = append(targets, *r.ElectricityUsage)
		}
	}
	if len(targets) == 0 {
		return nil, Bounds{}
	}
	sort.Float64s(targets)

	q1 := quantile(targets, 0.25)
	q3 := quantile(targets, 0.75)
	iqr := q3 - q1
	bounds := Bounds{Lower: q1 - 1.5*iqr, Upper: q3 + 1.5*iqr}

	kept := make([]models.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.ElectricityUsage == nil {
			continue
		}
		if v := *r.ElectricityUsage; v >= bounds.Lower && v <= bounds.Upper {
			kept = append(kept, r)
		}
	}
	return kept, bounds
}

// fillMissing replaces missing predictor values with 0. Zero is a sentinel,
// not a statistical imputation; the policy applies only to predictor columns,
// never to the target or identifiers, and is part of the persisted contract.
func fillMissing(rows []models.FeatureRow) {
	zero := 0.0
	for i := range rows {
		o := &rows[i].Observation
		for _, p := range []**float64{&o.Sqm, &o.AirTemperature, &o.DewTemperature, &o.SeaLvlPressure, &o.WindSpeed} {
			if *p == nil {
				*p = &zero
			}
		}
	}
}

// quantile returns the p-quantile of sorted values using linear interpolation
// between order statistics.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Value returns a feature row's value for a named predictor column.
func Value(r *models.FeatureRow, predictor string) (float64, error) {
	switch predictor {
	case "month":
		return float64(r.Month), nil
	case "day_of_week":
		return float64(r.DayOfWeek), nil
	case "is_weekend":
		return float64(r.IsWeekend), nil
	case "airTemperature":
		return deref(r.AirTemperature), nil
	case "dewTemperature":
		return deref(r.DewTemperature), nil
	case "seaLvlPressure":
		return deref(r.SeaLvlPressure), nil
	case "windSpeed":
		return deref(r.WindSpeed), nil
	case "sqm":
		return deref(r.Sqm), nil
	case "lag_1":
		return r.Lag1, nil
	case "lag_7":
		return r.Lag7, nil
	default:
		return 0, fmt.Errorf("unknown predictor %q", predictor)
	}
}

// Matrix extracts (X, y) from feature rows using the given predictor order.
func Matrix(rows []models.FeatureRow, predictors []string) ([][]float64, []float64, error) {
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i := range rows {
		vec := make([]float64, len(predictors))
		for j, p := range predictors {
			v, err := Value(&rows[i], p)
			if err != nil {
				return nil, nil, err
			}
			vec[j] = v
		}
		X[i] = vec
		if rows[i].ElectricityUsage == nil {
			return nil, nil, fmt.Errorf("row %d: target is missing after cleaning", i+1)
		}
		y[i] = *rows[i].ElectricityUsage
	}
	return X, y, nil
}

// WriteProcessed writes the cleaned table as CSV and the predictor list as a
// sibling predictors.txt, the file contract the trainer consumes.
func WriteProcessed(path string, rows []models.FeatureRow, predictors []string) error {
	frame := &dataset.Frame{
		Columns: []string{
			"building_id", "site_id", "date", Target,
			"sqm", "airTemperature", "dewTemperature", "seaLvlPressure", "windSpeed",
			"month", "day_of_week", "is_weekend", "lag_1", "lag_7",
		},
		Rows: make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		frame.Rows = append(frame.Rows, []string{
			r.BuildingID,
			r.SiteID,
			r.Date.Format("2006-01-02"),
			formatFloat(*r.ElectricityUsage),
			formatFloat(deref(r.Sqm)),
			formatFloat(deref(r.AirTemperature)),
			formatFloat(deref(r.DewTemperature)),
			formatFloat(deref(r.SeaLvlPressure)),
			formatFloat(deref(r.WindSpeed)),
			strconv.Itoa(r.Month),
			strconv.Itoa(r.DayOfWeek),
			strconv.Itoa(r.IsWeekend),
			formatFloat(r.Lag1),
			formatFloat(r.Lag7),
		})
	}

	if err := frame.WriteCSV(path); err != nil {
		return err
	}

	predictorPath := filepath.Join(filepath.Dir(path), "predictors.txt")
	if err := dataset.WritePredictors(predictorPath, predictors); err != nil {
		return fmt.Errorf("writing predictor list: %w", err)
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
