// Package artifact persists the trained model bundle: the forest itself with
// its embedded predictor list, plus the human-readable metrics summary and
// the feature-importance table. Embedding the predictor list in model.json
// makes a "model without its feature contract" state impossible to load.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jgoulah/gridforecast/internal/dataset"
	"github.com/jgoulah/gridforecast/internal/forest"
	"github.com/jgoulah/gridforecast/internal/training"
)

// File names inside an artifact directory.
const (
	ModelFile      = "model.json"
	PredictorsFile = "predictors.txt"
	MetricsFile    = "metrics.txt"
	ImportanceFile = "feature_importance.csv"
)

// ErrNoPredictors is returned by Load when the artifact carries no predictor
// list. There is deliberately no fallback to a default list; a model without
// its feature contract is unusable.
var ErrNoPredictors = errors.New("artifact has no embedded predictor list")

// Metrics is the evaluation summary persisted with a model.
type Metrics struct {
	RMSE       float64
	R2         float64
	MAE        float64
	FoldRMSE   []float64
	CVMeanRMSE float64
	CVStdRMSE  float64
}

// Bundle is the loaded artifact: the model plus the exact predictor list it
// was fitted with. After Save the bundle on disk is immutable; it is only
// ever read back.
type Bundle struct {
	RunID      string
	CreatedAt  time.Time
	Predictors []string
	Model      *forest.Forest
}

type savedModel struct {
	RunID      string         `json:"run_id"`
	CreatedAt  time.Time      `json:"created_at"`
	Predictors []string       `json:"predictors"`
	Forest     *forest.Forest `json:"forest"`
}

// Save writes the artifact bundle into dir and returns the run ID. Every
// file goes through a temp-file-and-rename so a failed save never leaves a
// corrupted artifact behind.
func Save(dir string, model *forest.Forest, predictors []string, m Metrics, ranked []training.Importance) (string, error) {
	if model == nil {
		return "", fmt.Errorf("nothing to save: model is nil")
	}
	if len(predictors) == 0 {
		return "", ErrNoPredictors
	}
	if len(predictors) != model.NumFeatures {
		return "", fmt.Errorf("model has %d features but %d predictors given", model.NumFeatures, len(predictors))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}

	runID := uuid.NewString()
	saved := savedModel{
		RunID:      runID,
		CreatedAt:  time.Now().UTC(),
		Predictors: predictors,
		Forest:     model,
	}

	data, err := json.Marshal(&saved)
	if err != nil {
		return "", fmt.Errorf("encoding model: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, ModelFile), data); err != nil {
		return "", err
	}

	// Sibling predictors.txt keeps the external file contract readable
	// without parsing JSON; the embedded copy is the authoritative one.
	if err := writeAtomic(filepath.Join(dir, PredictorsFile), []byte(strings.Join(predictors, "\n")+"\n")); err != nil {
		return "", err
	}

	if err := writeAtomic(filepath.Join(dir, MetricsFile), []byte(formatMetrics(m))); err != nil {
		return "", err
	}

	if err := writeAtomic(filepath.Join(dir, ImportanceFile), []byte(formatImportance(ranked))); err != nil {
		return "", err
	}

	return runID, nil
}

// Load reads an artifact bundle back from dir. A missing or empty embedded
// predictor list is a hard failure.
func Load(dir string) (*Bundle, error) {
	data, err := os.ReadFile(filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}

	var saved savedModel
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}
	if saved.Forest == nil || len(saved.Forest.Trees) == 0 {
		return nil, fmt.Errorf("artifact in %s contains no fitted model", dir)
	}
	if len(saved.Predictors) == 0 {
		return nil, fmt.Errorf("loading %s: %w", dir, ErrNoPredictors)
	}
	if len(saved.Predictors) != saved.Forest.NumFeatures {
		return nil, fmt.Errorf("artifact predictor list has %d names but model expects %d features",
			len(saved.Predictors), saved.Forest.NumFeatures)
	}

	return &Bundle{
		RunID:      saved.RunID,
		CreatedAt:  saved.CreatedAt,
		Predictors: saved.Predictors,
		Model:      saved.Forest,
	}, nil
}

// ReadPredictors exposes the sibling predictors.txt of an artifact or
// processed-data directory.
func ReadPredictors(dir string) ([]string, error) {
	return dataset.ReadPredictors(filepath.Join(dir, PredictorsFile))
}

func formatMetrics(m Metrics) string {
	var b strings.Builder
	b.WriteString("=== Model Performance Metrics ===\n")
	fmt.Fprintf(&b, "Root Mean Squared Error: %.4f\n", m.RMSE)
	fmt.Fprintf(&b, "R^2 Score: %.4f\n", m.R2)
	fmt.Fprintf(&b, "Mean Absolute Error: %.4f\n", m.MAE)
	b.WriteString("\n=== Cross-Validation Results ===\n")
	if len(m.FoldRMSE) > 0 {
		parts := make([]string, len(m.FoldRMSE))
		for i, v := range m.FoldRMSE {
			parts[i] = strconv.FormatFloat(v, 'f', 4, 64)
		}
		fmt.Fprintf(&b, "RMSE per fold: [%s]\n", strings.Join(parts, " "))
	}
	fmt.Fprintf(&b, "Mean RMSE: %.4f\n", m.CVMeanRMSE)
	fmt.Fprintf(&b, "Standard Deviation of RMSE: %.4f\n", m.CVStdRMSE)
	return b.String()
}

func formatImportance(ranked []training.Importance) string {
	var b strings.Builder
	b.WriteString("Feature,Importance\n")
	for _, imp := range ranked {
		fmt.Fprintf(&b, "%s,%s\n", imp.Feature, strconv.FormatFloat(imp.Score, 'f', -1, 64))
	}
	return b.String()
}

// writeAtomic writes data to path via a temp file in the same directory and
// an atomic rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
