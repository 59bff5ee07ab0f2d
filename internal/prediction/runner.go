// Package prediction applies a persisted model artifact to new tabular data.
package prediction

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jgoulah/gridforecast/internal/artifact"
	"github.com/jgoulah/gridforecast/internal/dataset"
	"github.com/jgoulah/gridforecast/internal/forest"
	"github.com/jgoulah/gridforecast/internal/logging"
)

// OutputColumn is the column appended to the input table.
const OutputColumn = "predicted_electricity_usage"

// ErrMissingColumn is returned when the input table lacks a predictor column
// the model was trained with. Nothing is predicted in that case.
var ErrMissingColumn = errors.New("input is missing a predictor column")

// Runner applies a loaded model to frames using the exact predictor columns,
// in the exact order, the model was trained with.
type Runner struct {
	model      *forest.Forest
	predictors []string
	runID      string
	log        *logging.Logger
}

// NewRunner wraps an already-loaded model and its predictor contract.
func NewRunner(model *forest.Forest, predictors []string, log *logging.Logger) *Runner {
	return &Runner{model: model, predictors: predictors, log: log}
}

// Load reads the artifact bundle from dir and returns a Runner for it.
func Load(dir string, log *logging.Logger) (*Runner, error) {
	bundle, err := artifact.Load(dir)
	if err != nil {
		return nil, err
	}
	log.Info("[prediction] loaded model %s (%d trees, %d predictors)",
		bundle.RunID, len(bundle.Model.Trees), len(bundle.Predictors))
	return &Runner{
		model:      bundle.Model,
		predictors: bundle.Predictors,
		runID:      bundle.RunID,
		log:        log,
	}, nil
}

// RunID returns the identifier of the loaded training run, or "" when the
// Runner was built directly from an in-memory model.
func (r *Runner) RunID() string {
	return r.runID
}

// Predictors returns the persisted feature contract, in order.
func (r *Runner) Predictors() []string {
	out := make([]string, len(r.predictors))
	copy(out, r.predictors)
	return out
}

// Run selects the persisted predictor columns from the frame, runs
// inference, and appends the result as OutputColumn. Existing columns are
// untouched. If any predictor column is absent the frame is left unchanged
// and a schema error naming the column is returned.
func (r *Runner) Run(frame *dataset.Frame) ([]float64, error) {
	for _, p := range r.predictors {
		if _, ok := frame.ColumnIndex(p); !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, p)
		}
	}

	X, err := frame.Matrix(r.predictors)
	if err != nil {
		return nil, fmt.Errorf("building prediction matrix: %w", err)
	}

	preds, err := r.model.PredictAll(X)
	if err != nil {
		return nil, fmt.Errorf("predicting: %w", err)
	}

	cells := make([]string, len(preds))
	for i, v := range preds {
		cells[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if err := frame.AppendColumn(OutputColumn, cells); err != nil {
		return nil, err
	}

	r.log.Info("[prediction] predicted %d rows", len(preds))
	return preds, nil
}
