package perception

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// ForestConfig configures the isolation forest.
type ForestConfig struct {
	// Contamination is the expected proportion of anomalies, in (0,1).
	// It calibrates the decision threshold at training time.
	Contamination float64
	// Estimators is the number of trees in the ensemble.
	Estimators int
	// SampleSize is the subsample size per tree. Zero selects
	// min(256, len(training set)).
	SampleSize int
	// Seed fixes the random source so that repeated training on identical
	// data yields identical scores.
	Seed int64
}

// Forest is a fitted ensemble of randomized partitioning trees. Scores are
// in (0,1) with higher values meaning more anomalous. A fitted Forest is
// immutable and safe for concurrent scoring.
type Forest struct {
	Trees     []*forestNode `json:"trees"`
	Threshold float64       `json:"threshold"`
	Baseline  float64       `json:"baseline"`
	SampleN   int           `json:"sample_n"`
}

type forestNode struct {
	Feature int         `json:"f"`
	Split   float64     `json:"s"`
	Left    *forestNode `json:"l,omitempty"`
	Right   *forestNode `json:"r,omitempty"`
	Size    int         `json:"n"`
}

func (n *forestNode) leaf() bool { return n.Left == nil && n.Right == nil }

// FitForest trains an isolation forest over normalized feature vectors from
// known-normal data. The decision threshold is the empirical
// (1 - contamination) quantile of the training scores, and the baseline is
// the mean training score (used as the learned-normal reference for trend
// estimation).
func FitForest(cfg ForestConfig, vectors [][]float64) (*Forest, error) {
	if cfg.Contamination <= 0 || cfg.Contamination >= 1 {
		return nil, fmt.Errorf("contamination must be in (0,1), got %v", cfg.Contamination)
	}
	if cfg.Estimators < 1 {
		return nil, fmt.Errorf("estimators must be >= 1, got %d", cfg.Estimators)
	}
	if len(vectors) == 0 {
		return nil, &InsufficientDataError{Rows: 0, Required: 1}
	}

	sampleSize := cfg.SampleSize
	if sampleSize <= 0 {
		sampleSize = 256
	}
	if sampleSize > len(vectors) {
		sampleSize = len(vectors)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	heightLimit := int(math.Ceil(math.Log2(float64(sampleSize))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	f := &Forest{
		Trees:   make([]*forestNode, cfg.Estimators),
		SampleN: sampleSize,
	}
	for i := range f.Trees {
		sample := subsample(rng, vectors, sampleSize)
		f.Trees[i] = buildTree(rng, sample, 0, heightLimit)
	}

	// Calibrate the threshold so that the contamination fraction of the
	// training set scores at or above it.
	scores := make([]float64, len(vectors))
	var sum float64
	for i, v := range vectors {
		scores[i] = f.Score(v)
		sum += scores[i]
	}
	f.Baseline = sum / float64(len(scores))

	sort.Float64s(scores)
	idx := int(math.Floor(float64(len(scores)) * (1 - cfg.Contamination)))
	if idx >= len(scores) {
		idx = len(scores) - 1
	}
	f.Threshold = scores[idx]

	return f, nil
}

// Score returns the anomaly score for a normalized vector. Higher scores
// indicate more anomalous vectors.
func (f *Forest) Score(vec []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += pathLength(t, vec, 0)
	}
	avg := sum / float64(len(f.Trees))
	return math.Exp2(-avg / avgPathLength(f.SampleN))
}

// Anomalous reports whether a score is at or above the calibrated threshold.
func (f *Forest) Anomalous(score float64) bool {
	return score >= f.Threshold
}

func subsample(rng *rand.Rand, vectors [][]float64, size int) [][]float64 {
	if size >= len(vectors) {
		return vectors
	}
	idx := rng.Perm(len(vectors))[:size]
	sample := make([][]float64, size)
	for i, j := range idx {
		sample[i] = vectors[j]
	}
	return sample
}

func buildTree(rng *rand.Rand, sample [][]float64, depth, limit int) *forestNode {
	if depth >= limit || len(sample) <= 1 {
		return &forestNode{Size: len(sample)}
	}

	feature := rng.Intn(NumFeatures)
	lo, hi := sample[0][feature], sample[0][feature]
	for _, v := range sample[1:] {
		if v[feature] < lo {
			lo = v[feature]
		}
		if v[feature] > hi {
			hi = v[feature]
		}
	}
	if lo == hi {
		return &forestNode{Size: len(sample)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, v := range sample {
		if v[feature] < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}

	return &forestNode{
		Feature: feature,
		Split:   split,
		Left:    buildTree(rng, left, depth+1, limit),
		Right:   buildTree(rng, right, depth+1, limit),
		Size:    len(sample),
	}
}

func pathLength(node *forestNode, vec []float64, depth int) float64 {
	if node.leaf() {
		return float64(depth) + avgPathLength(node.Size)
	}
	if vec[node.Feature] < node.Split {
		return pathLength(node.Left, vec, depth+1)
	}
	return pathLength(node.Right, vec, depth+1)
}

// avgPathLength is the average path length of an unsuccessful BST search in
// a tree of n points, used to normalize isolation depths.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	h := math.Log(float64(n-1)) + 0.5772156649 // harmonic number approximation
	return 2*h - 2*float64(n-1)/float64(n)
}
