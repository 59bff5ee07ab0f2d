// Package forest implements a seeded random-forest regressor: bootstrap
// aggregated CART trees with variance-reduction splits. Fitting is
// deterministic for a given seed regardless of parallelism, because every
// tree draws from its own PCG stream keyed by (seed, tree index).
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config holds the forest hyperparameters.
type Config struct {
	Trees    int    // number of trees (default 100)
	MaxDepth int    // per-tree depth limit, 0 = unlimited
	MTry     int    // features considered per split, 0 = all
	Seed     uint64 // base seed for the per-tree rng streams
}

// DefaultConfig returns the standard hyperparameters: 100 trees, unlimited
// depth, all features per split, seed 42.
func DefaultConfig() Config {
	return Config{Trees: 100, Seed: 42}
}

// Forest is a fitted ensemble. The exported fields are the serialized model
// artifact.
type Forest struct {
	Trees       []*Node   `json:"trees"`
	NumFeatures int       `json:"num_features"`
	FeatureGain []float64 `json:"feature_gain"` // impurity decrease per feature, normalized to sum 1
}

// ErrEmptyMatrix is returned when there is nothing to fit on.
var ErrEmptyMatrix = errors.New("empty training matrix")

// Fit trains a forest on (X, y). X must be rectangular and fully numeric;
// a NaN or Inf anywhere is an unrecoverable input error, since the feature
// builder's zero-fill pass is supposed to have removed every gap already.
func Fit(X [][]float64, y []float64, cfg Config) (*Forest, error) {
	if err := validate(X, y); err != nil {
		return nil, err
	}
	if cfg.Trees <= 0 {
		return nil, fmt.Errorf("tree count must be positive, got %d", cfg.Trees)
	}

	n := len(X)
	p := len(X[0])
	mtry := cfg.MTry
	if mtry <= 0 || mtry > p {
		mtry = p
	}

	f := &Forest{
		Trees:       make([]*Node, cfg.Trees),
		NumFeatures: p,
	}
	gains := make([][]float64, cfg.Trees)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < cfg.Trees; t++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(t)))

			// Bootstrap sample, n draws with replacement.
			idx := make([]int, n)
			for i := range idx {
				idx[i] = rng.IntN(n)
			}

			tb := &treeBuilder{
				X:        X,
				y:        y,
				mtry:     mtry,
				maxDepth: cfg.MaxDepth,
				rng:      rng,
				gain:     make([]float64, p),
			}
			f.Trees[t] = tb.build(idx, 0)
			gains[t] = tb.gain
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.FeatureGain = normalizeGains(gains, p)
	return f, nil
}

// Predict returns the ensemble mean for one feature vector.
func (f *Forest) Predict(x []float64) (float64, error) {
	if len(x) != f.NumFeatures {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(x), f.NumFeatures)
	}
	var sum float64
	for _, tree := range f.Trees {
		sum += tree.predict(x)
	}
	return sum / float64(len(f.Trees)), nil
}

// PredictAll predicts every row of X.
func (f *Forest) PredictAll(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, x := range X {
		v, err := f.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// Importances returns the per-feature importance scores, one per input
// feature, summing to 1 when any split was made.
func (f *Forest) Importances() []float64 {
	out := make([]float64, len(f.FeatureGain))
	copy(out, f.FeatureGain)
	return out
}

func validate(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return ErrEmptyMatrix
	}
	if len(X) != len(y) {
		return fmt.Errorf("matrix has %d rows but target has %d values", len(X), len(y))
	}
	p := len(X[0])
	if p == 0 {
		return fmt.Errorf("matrix has no feature columns")
	}
	for i, row := range X {
		if len(row) != p {
			return fmt.Errorf("row %d has %d features, want %d", i+1, len(row), p)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d, feature %d: non-numeric value", i+1, j)
			}
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return fmt.Errorf("row %d: target is non-numeric", i+1)
		}
	}
	return nil
}

func normalizeGains(gains [][]float64, p int) []float64 {
	total := make([]float64, p)
	var sum float64
	for _, g := range gains {
		for j, v := range g {
			total[j] += v
			sum += v
		}
	}
	if sum > 0 {
		for j := range total {
			total[j] /= sum
		}
	}
	return total
}
