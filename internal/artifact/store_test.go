package artifact

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridforecast/internal/forest"
	"github.com/jgoulah/gridforecast/internal/training"
)

func fitSmallModel(t *testing.T) (*forest.Forest, [][]float64) {
	t.Helper()
	X := make([][]float64, 40)
	y := make([]float64, 40)
	for i := range X {
		X[i] = []float64{float64(i), float64(i % 5)}
		y[i] = float64(2 * i)
	}
	cfg := forest.DefaultConfig()
	cfg.Trees = 5
	model, err := forest.Fit(X, y, cfg)
	require.NoError(t, err)
	return model, X
}

func sampleMetrics() Metrics {
	return Metrics{
		RMSE: 1.2345, R2: 0.9876, MAE: 0.9,
		FoldRMSE:   []float64{1.1, 1.2, 1.3, 1.4, 1.5},
		CVMeanRMSE: 1.3, CVStdRMSE: 0.141,
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	model, X := fitSmallModel(t)
	predictors := []string{"lag_1", "lag_7"}
	ranked := []training.Importance{{Feature: "lag_1", Score: 0.7}, {Feature: "lag_7", Score: 0.3}}

	dir := t.TempDir()
	runID, err := Save(dir, model, predictors, sampleMetrics(), ranked)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	for _, name := range []string{ModelFile, PredictorsFile, MetricsFile, ImportanceFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "missing %s", name)
	}

	bundle, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, runID, bundle.RunID)
	assert.Equal(t, predictors, bundle.Predictors)

	// The loaded model predicts identically to the one that was saved.
	want, err := model.PredictAll(X)
	require.NoError(t, err)
	got, err := bundle.Model.PredictAll(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSave_RequiresPredictors(t *testing.T) {
	model, _ := fitSmallModel(t)

	_, err := Save(t.TempDir(), model, nil, sampleMetrics(), nil)
	assert.ErrorIs(t, err, ErrNoPredictors)

	_, err = Save(t.TempDir(), model, []string{"just_one"}, sampleMetrics(), nil)
	assert.Error(t, err, "predictor count must match model width")
}

func TestLoad_RejectsMissingPredictorList(t *testing.T) {
	// An artifact written without its predictor list must not load; there
	// is no fallback to a default list.
	model, _ := fitSmallModel(t)
	dir := t.TempDir()

	data, err := json.Marshal(savedModel{RunID: "r1", Forest: model})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFile), data, 0644))

	_, err = Load(dir)
	assert.True(t, errors.Is(err, ErrNoPredictors), "got %v", err)
}

func TestLoad_MissingArtifact(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestSave_MetricsAndImportanceContents(t *testing.T) {
	model, _ := fitSmallModel(t)
	predictors := []string{"lag_1", "lag_7"}
	ranked := []training.Importance{{Feature: "lag_1", Score: 0.7}, {Feature: "lag_7", Score: 0.3}}

	dir := t.TempDir()
	_, err := Save(dir, model, predictors, sampleMetrics(), ranked)
	require.NoError(t, err)

	metrics, err := os.ReadFile(filepath.Join(dir, MetricsFile))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "Root Mean Squared Error: 1.2345")
	assert.Contains(t, string(metrics), "R^2 Score: 0.9876")
	assert.Contains(t, string(metrics), "Mean RMSE: 1.3000")
	assert.Contains(t, string(metrics), "Standard Deviation of RMSE: 0.1410")

	imp, err := os.ReadFile(filepath.Join(dir, ImportanceFile))
	require.NoError(t, err)
	assert.Equal(t, "Feature,Importance\nlag_1,0.7\nlag_7,0.3\n", string(imp))

	// Sibling predictors.txt mirrors the embedded list.
	names, err := ReadPredictors(dir)
	require.NoError(t, err)
	assert.Equal(t, predictors, names)
}

func TestSave_NoTempFilesLeftBehind(t *testing.T) {
	model, _ := fitSmallModel(t)
	dir := t.TempDir()

	_, err := Save(dir, model, []string{"lag_1", "lag_7"}, sampleMetrics(), nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}
