package models

import (
	"fmt"
	"math/rand"
	"sort"
)

// BoostConfig holds gradient boosting hyperparameters. The three boosted
// registry entries differ only in which knobs they exercise: column
// subsampling, a leaf budget with a feature fraction, or L2 leaf
// regularization.
type BoostConfig struct {
	Estimators      int     `json:"n_estimators"`
	MaxDepth        int     `json:"max_depth"`
	LearningRate    float64 `json:"learning_rate"`
	Subsample       float64 `json:"subsample"`
	ColsampleByTree float64 `json:"colsample_bytree"`
	NumLeaves       int     `json:"num_leaves"`
	L2LeafReg       float64 `json:"l2_leaf_reg"`
	Seed            int64   `json:"random_state"`
}

func (c BoostConfig) withDefaults() BoostConfig {
	if c.Estimators <= 0 {
		c.Estimators = 100
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 3
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.1
	}
	if c.Subsample <= 0 || c.Subsample > 1 {
		c.Subsample = 1.0
	}
	if c.ColsampleByTree <= 0 || c.ColsampleByTree > 1 {
		c.ColsampleByTree = 1.0
	}
	return c
}

// GradientBoost fits shallow regression trees to the residuals of the
// running prediction, starting from the target mean. Exported fields carry
// the fitted state for serialization.
type GradientBoost struct {
	ModelName   string      `json:"name"`
	Config      BoostConfig `json:"config"`
	Base        float64     `json:"base"`
	Trees       []*TreeNode `json:"trees"`
	Importance  []float64   `json:"importance"`
	NumFeatures int         `json:"num_features"`
	Trained     bool        `json:"trained"`
}

// NewGradientBoost creates an unfitted booster with defaults applied.
func NewGradientBoost(name string, cfg BoostConfig) *GradientBoost {
	return &GradientBoost{
		ModelName: name,
		Config:    cfg.withDefaults(),
	}
}

// Name implements Regressor.
func (g *GradientBoost) Name() string { return g.ModelName }

// Clone implements Regressor.
func (g *GradientBoost) Clone() Regressor {
	return NewGradientBoost(g.ModelName, g.Config)
}

// Fit runs squared-loss boosting. Deterministic for a fixed seed.
func (g *GradientBoost) Fit(X [][]float64, y []float64) error {
	width, err := validateTrainingData(X, y)
	if err != nil {
		return fmt.Errorf("gradient boost %s: %w", g.ModelName, err)
	}

	rng := rand.New(rand.NewSource(g.Config.Seed))
	n := len(X)

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = mean
	}
	residual := make([]float64, n)

	g.Base = mean
	g.Trees = make([]*TreeNode, 0, g.Config.Estimators)
	g.Importance = make([]float64, width)
	g.NumFeatures = width

	for t := 0; t < g.Config.Estimators; t++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}

		indices := g.sampleRows(rng, n)
		feats := g.sampleFeatures(rng, width)

		builder := newTreeBuilder(X, residual, treeParams{
			maxDepth:        g.Config.MaxDepth,
			minSamplesSplit: 2,
			minSamplesLeaf:  1,
			maxLeaves:       g.Config.NumLeaves,
			l2:              g.Config.L2LeafReg,
			features:        feats,
		}, width)
		tree := builder.build(indices, 0)

		g.Trees = append(g.Trees, tree)
		for j, v := range builder.importance {
			g.Importance[j] += v
		}

		for i, x := range X {
			pred[i] += g.Config.LearningRate * predictNode(tree, x)
		}
	}

	normalizeImportance(g.Importance)
	g.Trained = true
	return nil
}

// Predict implements Regressor.
func (g *GradientBoost) Predict(X [][]float64) ([]float64, error) {
	if !g.Trained {
		return nil, fmt.Errorf("gradient boost %s: %w", g.ModelName, ErrNotFitted)
	}
	if err := validateWidth(X, g.NumFeatures); err != nil {
		return nil, fmt.Errorf("gradient boost %s: %w", g.ModelName, err)
	}

	out := make([]float64, len(X))
	for i, x := range X {
		v := g.Base
		for _, tree := range g.Trees {
			v += g.Config.LearningRate * predictNode(tree, x)
		}
		out[i] = v
	}
	return out, nil
}

// FeatureImportances implements ImportanceReporter.
func (g *GradientBoost) FeatureImportances() ([]float64, bool) {
	if !g.Trained {
		return nil, false
	}
	return append([]float64(nil), g.Importance...), true
}

// sampleRows subsamples row indices without replacement per stage.
func (g *GradientBoost) sampleRows(rng *rand.Rand, n int) []int {
	if g.Config.Subsample >= 1 {
		return featureRange(n)
	}
	size := int(float64(n) * g.Config.Subsample)
	if size < 1 {
		size = 1
	}
	perm := rng.Perm(n)
	indices := perm[:size]
	sort.Ints(indices)
	return indices
}

// sampleFeatures picks the candidate split columns for one stage.
func (g *GradientBoost) sampleFeatures(rng *rand.Rand, width int) []int {
	if g.Config.ColsampleByTree >= 1 {
		return featureRange(width)
	}
	size := int(float64(width)*g.Config.ColsampleByTree + 0.5)
	if size < 1 {
		size = 1
	}
	perm := rng.Perm(width)
	feats := perm[:size]
	sort.Ints(feats)
	return feats
}
