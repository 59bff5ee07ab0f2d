package forest

import (
	"math/rand/v2"
	"sort"
)

// Node is one node of a regression tree. Leaves have Feature == -1 and carry
// the mean target of their training rows in Value.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Value     float64 `json:"value"`
	Left      *Node   `json:"left,omitempty"`
	Right     *Node   `json:"right,omitempty"`
}

// predict walks the tree for one feature vector.
func (n *Node) predict(x []float64) float64 {
	for n.Feature >= 0 {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// treeBuilder grows a single CART regression tree on a bootstrap sample.
// Splits minimize the summed squared error of the two children; the gain of
// each chosen split is accumulated into gain[feature] for the forest's
// importance scores.
type treeBuilder struct {
	X        [][]float64
	y        []float64
	mtry     int // features considered per split
	maxDepth int // 0 = unlimited
	rng      *rand.Rand
	gain     []float64
}

const minGain = 1e-12

func (tb *treeBuilder) build(idx []int, depth int) *Node {
	n := len(idx)

	var sum, sumSq float64
	for _, i := range idx {
		sum += tb.y[i]
		sumSq += tb.y[i] * tb.y[i]
	}
	mean := sum / float64(n)
	sse := sumSq - sum*sum/float64(n)

	leaf := &Node{Feature: -1, Value: mean}
	if n < 2 || sse <= minGain {
		return leaf
	}
	if tb.maxDepth > 0 && depth >= tb.maxDepth {
		return leaf
	}

	feature, threshold, gain, ok := tb.bestSplit(idx, sum, sumSq, sse)
	if !ok {
		return leaf
	}
	tb.gain[feature] += gain

	var left, right []int
	for _, i := range idx {
		if tb.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &Node{
		Feature:   feature,
		Threshold: threshold,
		Value:     mean,
		Left:      tb.build(left, depth+1),
		Right:     tb.build(right, depth+1),
	}
}

// bestSplit scans candidate features and returns the split with the largest
// squared-error reduction. Thresholds fall halfway between adjacent distinct
// values, so equal values can never be separated.
func (tb *treeBuilder) bestSplit(idx []int, sum, sumSq, sse float64) (feature int, threshold, gain float64, ok bool) {
	n := len(idx)
	order := make([]int, n)

	for _, f := range tb.candidateFeatures() {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return tb.X[order[a]][f] < tb.X[order[b]][f]
		})

		var leftSum, leftSumSq float64
		for pos := 1; pos < n; pos++ {
			yi := tb.y[order[pos-1]]
			leftSum += yi
			leftSumSq += yi * yi

			prev := tb.X[order[pos-1]][f]
			cur := tb.X[order[pos]][f]
			if cur <= prev {
				continue
			}

			nL := float64(pos)
			nR := float64(n - pos)
			rightSum := sum - leftSum
			rightSumSq := sumSq - leftSumSq
			sseL := leftSumSq - leftSum*leftSum/nL
			sseR := rightSumSq - rightSum*rightSum/nR

			if g := sse - sseL - sseR; g > gain+minGain {
				feature = f
				threshold = prev + (cur-prev)/2
				gain = g
				ok = true
			}
		}
	}
	return feature, threshold, gain, ok
}

// candidateFeatures returns the feature indices to consider at a split: all
// of them when mtry covers the full width, otherwise a random subset drawn
// without replacement from the tree's own rng stream.
func (tb *treeBuilder) candidateFeatures() []int {
	p := len(tb.X[0])
	if tb.mtry >= p {
		features := make([]int, p)
		for i := range features {
			features[i] = i
		}
		return features
	}

	// Partial Fisher-Yates.
	pool := make([]int, p)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < tb.mtry; i++ {
		j := i + tb.rng.IntN(p-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:tb.mtry]
}
