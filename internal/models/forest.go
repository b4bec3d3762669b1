package models

import (
	"fmt"
	"math/rand"
)

// ForestConfig holds random forest hyperparameters.
type ForestConfig struct {
	Estimators      int   `json:"n_estimators"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"random_state"`
}

func (c ForestConfig) withDefaults() ForestConfig {
	if c.Estimators <= 0 {
		c.Estimators = 100
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 10
	}
	if c.MinSamplesSplit <= 0 {
		c.MinSamplesSplit = 2
	}
	if c.MinSamplesLeaf <= 0 {
		c.MinSamplesLeaf = 1
	}
	return c
}

// RandomForest bags regression trees grown on bootstrap resamples of the
// training data and averages their predictions. Exported fields carry the
// fitted state for serialization.
type RandomForest struct {
	ModelName   string       `json:"name"`
	Config      ForestConfig `json:"config"`
	Trees       []*TreeNode  `json:"trees"`
	Importance  []float64    `json:"importance"`
	NumFeatures int          `json:"num_features"`
	Trained     bool         `json:"trained"`
}

// NewRandomForest creates an unfitted forest with defaults applied.
func NewRandomForest(name string, cfg ForestConfig) *RandomForest {
	return &RandomForest{
		ModelName: name,
		Config:    cfg.withDefaults(),
	}
}

// Name implements Regressor.
func (f *RandomForest) Name() string { return f.ModelName }

// Clone implements Regressor.
func (f *RandomForest) Clone() Regressor {
	return NewRandomForest(f.ModelName, f.Config)
}

// Fit grows the configured number of trees on bootstrap resamples.
// Deterministic for a fixed seed.
func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	width, err := validateTrainingData(X, y)
	if err != nil {
		return fmt.Errorf("random forest %s: %w", f.ModelName, err)
	}

	rng := rand.New(rand.NewSource(f.Config.Seed))
	allFeatures := featureRange(width)
	n := len(X)

	f.Trees = make([]*TreeNode, 0, f.Config.Estimators)
	f.Importance = make([]float64, width)
	f.NumFeatures = width

	for t := 0; t < f.Config.Estimators; t++ {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
		}

		builder := newTreeBuilder(X, y, treeParams{
			maxDepth:        f.Config.MaxDepth,
			minSamplesSplit: f.Config.MinSamplesSplit,
			minSamplesLeaf:  f.Config.MinSamplesLeaf,
			features:        allFeatures,
		}, width)

		f.Trees = append(f.Trees, builder.build(indices, 0))
		for j, v := range builder.importance {
			f.Importance[j] += v
		}
	}

	normalizeImportance(f.Importance)
	f.Trained = true
	return nil
}

// Predict averages the trees. Implements Regressor.
func (f *RandomForest) Predict(X [][]float64) ([]float64, error) {
	if !f.Trained {
		return nil, fmt.Errorf("random forest %s: %w", f.ModelName, ErrNotFitted)
	}
	if err := validateWidth(X, f.NumFeatures); err != nil {
		return nil, fmt.Errorf("random forest %s: %w", f.ModelName, err)
	}

	out := make([]float64, len(X))
	for i, x := range X {
		var sum float64
		for _, tree := range f.Trees {
			sum += predictNode(tree, x)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}

// FeatureImportances implements ImportanceReporter.
func (f *RandomForest) FeatureImportances() ([]float64, bool) {
	if !f.Trained {
		return nil, false
	}
	return append([]float64(nil), f.Importance...), true
}

func featureRange(width int) []int {
	out := make([]int, width)
	for i := range out {
		out[i] = i
	}
	return out
}
