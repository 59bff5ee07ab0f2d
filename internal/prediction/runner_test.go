package prediction

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridforecast/internal/artifact"
	"github.com/jgoulah/gridforecast/internal/dataset"
	"github.com/jgoulah/gridforecast/internal/forest"
	"github.com/jgoulah/gridforecast/internal/logging"
)

func trainedModel(t *testing.T) *forest.Forest {
	t.Helper()
	X := make([][]float64, 60)
	y := make([]float64, 60)
	for i := range X {
		X[i] = []float64{float64(i), float64(i % 3), float64(i % 2)}
		y[i] = float64(i) * 1.5
	}
	cfg := forest.DefaultConfig()
	cfg.Trees = 5
	model, err := forest.Fit(X, y, cfg)
	require.NoError(t, err)
	return model
}

func TestRun_AppendsPredictionColumn(t *testing.T) {
	model := trainedModel(t)
	runner := NewRunner(model, []string{"a", "b", "c"}, logging.Discard())

	frame := &dataset.Frame{
		Columns: []string{"id", "b", "a", "c"}, // order differs from training
		Rows: [][]string{
			{"r1", "1", "10", "0"},
			{"r2", "2", "20", "1"},
		},
	}

	preds, err := runner.Run(frame)
	require.NoError(t, err)
	require.Len(t, preds, 2)

	// Column order follows the persisted contract, not the input order.
	want1, err := model.Predict([]float64{10, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, want1, preds[0])

	idx, ok := frame.ColumnIndex(OutputColumn)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "b", "a", "c", OutputColumn}, frame.Columns)

	got, err := strconv.ParseFloat(frame.Rows[0][idx], 64)
	require.NoError(t, err)
	assert.Equal(t, want1, got)
}

func TestRun_MissingColumnIsSchemaError(t *testing.T) {
	runner := NewRunner(trainedModel(t), []string{"a", "b", "c"}, logging.Discard())

	frame := &dataset.Frame{
		Columns: []string{"a", "c"},
		Rows:    [][]string{{"1", "2"}},
	}

	_, err := runner.Run(frame)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), `"b"`)

	// No partial output: the frame is untouched.
	assert.Equal(t, []string{"a", "c"}, frame.Columns)
	assert.Len(t, frame.Rows[0], 2)
}

func TestRun_BlankCellsUseZeroFill(t *testing.T) {
	model := trainedModel(t)
	runner := NewRunner(model, []string{"a", "b", "c"}, logging.Discard())

	frame := &dataset.Frame{
		Columns: []string{"a", "b", "c"},
		Rows:    [][]string{{"10", "", "1"}},
	}

	preds, err := runner.Run(frame)
	require.NoError(t, err)

	want, err := model.Predict([]float64{10, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, want, preds[0])
}

func TestLoad_RoundTripThroughArtifact(t *testing.T) {
	model := trainedModel(t)
	predictors := []string{"a", "b", "c"}

	dir := t.TempDir()
	runID, err := artifact.Save(dir, model, predictors, artifact.Metrics{}, nil)
	require.NoError(t, err)

	runner, err := Load(dir, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, runID, runner.RunID())
	assert.Equal(t, predictors, runner.Predictors())

	frame := &dataset.Frame{
		Columns: []string{"a", "b", "c"},
		Rows:    [][]string{{"5", "1", "0"}, {"30", "2", "1"}},
	}
	preds, err := runner.Run(frame)
	require.NoError(t, err)

	for i, row := range [][]float64{{5, 1, 0}, {30, 2, 1}} {
		want, err := model.Predict(row)
		require.NoError(t, err)
		assert.Equal(t, want, preds[i])
	}
}
