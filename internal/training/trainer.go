// Package training orchestrates the train/evaluate/cross-validate/importance
// cycle around the forest regressor. Every operation is a pure function of
// its inputs; nothing is retained between calls.
package training

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jgoulah/gridforecast/internal/forest"
	"github.com/jgoulah/gridforecast/internal/logging"
)

// Config holds the orchestration parameters. All of them are explicit and
// overridable; there is no hidden global state.
type Config struct {
	TestFraction float64 // held-out fraction for evaluation (default 0.3)
	Trees        int     // forest size (default 100)
	Folds        int     // cross-validation folds (default 5)
	Seed         uint64  // random seed (default 42)
	MaxDepth     int     // tree depth limit, 0 = unlimited
}

// DefaultConfig returns the standard parameters: 0.3 test fraction, 100
// trees, 5 folds, seed 42.
func DefaultConfig() Config {
	return Config{TestFraction: 0.3, Trees: 100, Folds: 5, Seed: 42}
}

// Trainer runs the training cycle with a fixed configuration.
type Trainer struct {
	cfg Config
	log *logging.Logger
}

func New(cfg Config, log *logging.Logger) *Trainer {
	return &Trainer{cfg: cfg, log: log}
}

// Evaluation is the held-out test result: the three summary scalars plus the
// raw predictions they were computed from.
type Evaluation struct {
	RMSE        float64
	R2          float64
	MAE         float64
	Predictions []float64
}

// CrossValidation is the independent k-fold generalization estimate. It
// answers a different question than the single train/test Evaluation and the
// two are reported side by side, never merged.
type CrossValidation struct {
	FoldRMSE []float64
	MeanRMSE float64
	StdRMSE  float64
}

// Importance pairs a predictor name with its score.
type Importance struct {
	Feature string
	Score   float64
}

// Split partitions (X, y) into train and test sets by a seeded random
// shuffle. The split is row-random, not temporal; lag features on adjacent
// rows can therefore share history across the boundary. That is the
// evaluation semantics being preserved here, with TemporalSplit available
// for callers who want a leakage-free holdout instead.
func Split(X [][]float64, y []float64, testFraction float64, seed uint64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64, err error) {
	n := len(X)
	if n == 0 {
		return nil, nil, nil, nil, forest.ErrEmptyMatrix
	}
	if len(y) != n {
		return nil, nil, nil, nil, fmt.Errorf("matrix has %d rows but target has %d values", n, len(y))
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %g", testFraction)
	}

	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		return nil, nil, nil, nil, fmt.Errorf("test fraction %g leaves no training rows for %d samples", testFraction, n)
	}

	rng := rand.New(rand.NewPCG(seed, 0))
	indices := rng.Perm(n)

	testIdx := indices[:nTest]
	trainIdx := indices[nTest:]

	trainX, trainY = gather(X, y, trainIdx)
	testX, testY = gather(X, y, testIdx)
	return trainX, trainY, testX, testY, nil
}

// TemporalSplit holds out the trailing testFraction of rows in the order
// they arrive, for callers that want a time-respecting evaluation.
func TemporalSplit(X [][]float64, y []float64, testFraction float64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64, err error) {
	n := len(X)
	if n == 0 {
		return nil, nil, nil, nil, forest.ErrEmptyMatrix
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %g", testFraction)
	}
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		return nil, nil, nil, nil, fmt.Errorf("test fraction %g leaves no training rows for %d samples", testFraction, n)
	}
	cut := n - nTest
	return X[:cut], y[:cut], X[cut:], y[cut:], nil
}

// Fit trains a forest on the training partition only.
func (t *Trainer) Fit(trainX [][]float64, trainY []float64) (*forest.Forest, error) {
	t.log.Info("[training] fitting forest with %d trees (seed %d)", t.cfg.Trees, t.cfg.Seed)
	model, err := forest.Fit(trainX, trainY, t.forestConfig())
	if err != nil {
		return nil, fmt.Errorf("fitting model: %w", err)
	}
	return model, nil
}

// Evaluate computes RMSE, R² and MAE of the model on a held-out partition.
func Evaluate(model *forest.Forest, testX [][]float64, testY []float64) (*Evaluation, error) {
	if len(testX) == 0 {
		return nil, fmt.Errorf("evaluating: %w", forest.ErrEmptyMatrix)
	}
	if len(testX) != len(testY) {
		return nil, fmt.Errorf("evaluating: matrix has %d rows but target has %d values", len(testX), len(testY))
	}

	preds, err := model.PredictAll(testX)
	if err != nil {
		return nil, fmt.Errorf("evaluating: %w", err)
	}

	n := float64(len(testY))
	var mean float64
	for _, v := range testY {
		mean += v
	}
	mean /= n

	var sse, sae, sst float64
	for i, v := range testY {
		diff := preds[i] - v
		sse += diff * diff
		sae += math.Abs(diff)
		dm := v - mean
		sst += dm * dm
	}

	r2 := 0.0
	if sst > 0 {
		r2 = 1 - sse/sst
	}

	return &Evaluation{
		RMSE:        math.Sqrt(sse / n),
		R2:          r2,
		MAE:         sae / n,
		Predictions: preds,
	}, nil
}

// CrossValidate runs k-fold cross-validation over the entire dataset with a
// freshly initialized forest per fold (same hyperparameters, same seed).
// Folds are contiguous blocks of the row order, assigned up front, so the
// per-fold RMSEs are deterministic; the fold fits themselves run
// concurrently as a pure optimization.
func (t *Trainer) CrossValidate(X [][]float64, y []float64) (*CrossValidation, error) {
	n := len(X)
	if n == 0 {
		return nil, forest.ErrEmptyMatrix
	}
	k := t.cfg.Folds
	if k < 2 {
		return nil, fmt.Errorf("cross-validation needs at least 2 folds, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("cannot split %d rows into %d folds", n, k)
	}

	t.log.Info("[training] %d-fold cross-validation over %d rows", k, n)

	// Fold f covers rows [starts[f], starts[f+1]); the first n%k folds get
	// one extra row.
	starts := make([]int, k+1)
	base, extra := n/k, n%k
	for f := 0; f < k; f++ {
		size := base
		if f < extra {
			size++
		}
		starts[f+1] = starts[f] + size
	}

	foldRMSE := make([]float64, k)
	var g errgroup.Group
	for f := 0; f < k; f++ {
		g.Go(func() error {
			lo, hi := starts[f], starts[f+1]

			trainX := make([][]float64, 0, n-(hi-lo))
			trainY := make([]float64, 0, n-(hi-lo))
			trainX = append(append(trainX, X[:lo]...), X[hi:]...)
			trainY = append(append(trainY, y[:lo]...), y[hi:]...)

			model, err := forest.Fit(trainX, trainY, t.forestConfig())
			if err != nil {
				return fmt.Errorf("fold %d: %w", f+1, err)
			}

			eval, err := Evaluate(model, X[lo:hi], y[lo:hi])
			if err != nil {
				return fmt.Errorf("fold %d: %w", f+1, err)
			}
			foldRMSE[f] = eval.RMSE
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var sum float64
	for _, v := range foldRMSE {
		sum += v
	}
	mean := sum / float64(k)

	var variance float64
	for _, v := range foldRMSE {
		d := v - mean
		variance += d * d
	}

	return &CrossValidation{
		FoldRMSE: foldRMSE,
		MeanRMSE: mean,
		StdRMSE:  math.Sqrt(variance / float64(k)),
	}, nil
}

// RankImportance pairs the model's importance scores with predictor names
// and sorts by descending score. The sort is stable, so ties keep the
// original predictor-list order.
func RankImportance(model *forest.Forest, predictors []string) ([]Importance, error) {
	scores := model.Importances()
	if len(scores) != len(predictors) {
		return nil, fmt.Errorf("model has %d features but %d predictor names given", len(scores), len(predictors))
	}

	ranked := make([]Importance, len(predictors))
	for i, name := range predictors {
		ranked[i] = Importance{Feature: name, Score: scores[i]}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	return ranked, nil
}

func (t *Trainer) forestConfig() forest.Config {
	return forest.Config{
		Trees:    t.cfg.Trees,
		MaxDepth: t.cfg.MaxDepth,
		Seed:     t.cfg.Seed,
	}
}

func gather(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	gx := make([][]float64, len(idx))
	gy := make([]float64, len(idx))
	for i, j := range idx {
		gx[i] = X[j]
		gy[i] = y[j]
	}
	return gx, gy
}
