// Package ensemble trains and serves the weighted combination of the five
// configured regression learners. Rows are assumed to be in collection
// order: validation uses forward-chaining splits that only ever train on
// the past and score on the future.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zyztek/sardinai/internal/config"
	"github.com/zyztek/sardinai/internal/dataset"
	"github.com/zyztek/sardinai/internal/models"
	"github.com/zyztek/sardinai/internal/pipeline"
)

// Column roles fixed by the data contract.
const (
	TargetColumn = "sardine_density"
	TimeColumn   = "timestamp"
)

// Learner identities. The configured priors and hyperparameter sections
// are keyed by these names.
const (
	ModelXGBoost          = "xgboost"
	ModelLightGBM         = "lightgbm"
	ModelCatBoost         = "catboost"
	ModelRandomForest     = "random_forest"
	ModelGradientBoosting = "gradient_boosting"
)

// ModelScore summarizes one learner's cross-validation outcome.
type ModelScore struct {
	CVRMSE  float64   `json:"cv_rmse"`
	CVStd   float64   `json:"cv_std"`
	FoldMSE []float64 `json:"fold_mse"`
}

// Report is the outcome of a completed training run.
type Report struct {
	Rows     int                   `json:"rows"`
	Features int                   `json:"features"`
	Folds    int                   `json:"folds"`
	Scores   map[string]ModelScore `json:"scores"`
	Weights  map[string]float64    `json:"weights"`
	Duration time.Duration         `json:"duration"`
}

// fittedState bundles everything a prediction needs. It is replaced as a
// whole on Train, Reweight and Load so readers always see a consistent
// registry/pipeline/weights triple.
type fittedState struct {
	registry *models.Registry
	pipe     *pipeline.Pipeline
	weights  map[string]float64
	scores   map[string]ModelScore
}

// Predictor owns the model registry, the preprocessing pipeline and the
// blended weights. Safe for concurrent use: predictions run against an
// immutable snapshot.
type Predictor struct {
	cfg     config.Config
	logger  *zap.SugaredLogger
	metrics *engineMetrics

	mu    sync.RWMutex
	state *fittedState
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithMetrics registers training gauges on reg. A nil registerer leaves
// metrics disabled.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Predictor) {
		p.metrics = newEngineMetrics(reg)
	}
}

// New creates an untrained Predictor.
func New(cfg config.Config, logger *zap.SugaredLogger, opts ...Option) *Predictor {
	p := &Predictor{
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// buildRegistry instantiates the five learners from the configured
// hyperparameters. Every learner shares the configured random state.
func buildRegistry(cfg config.Config) (*models.Registry, error) {
	seed := cfg.Validation.RandomState
	m := cfg.Models

	learners := []models.Regressor{
		models.NewGradientBoost(ModelXGBoost, models.BoostConfig{
			Estimators:      m.XGBoost.Estimators,
			MaxDepth:        m.XGBoost.MaxDepth,
			LearningRate:    m.XGBoost.LearningRate,
			Subsample:       m.XGBoost.Subsample,
			ColsampleByTree: m.XGBoost.ColsampleByTree,
			Seed:            seed,
		}),
		models.NewGradientBoost(ModelLightGBM, models.BoostConfig{
			Estimators:      m.LightGBM.Estimators,
			MaxDepth:        m.LightGBM.MaxDepth,
			LearningRate:    m.LightGBM.LearningRate,
			NumLeaves:       m.LightGBM.NumLeaves,
			ColsampleByTree: m.LightGBM.FeatureFraction,
			Seed:            seed,
		}),
		models.NewGradientBoost(ModelCatBoost, models.BoostConfig{
			Estimators:   m.CatBoost.Estimators,
			MaxDepth:     m.CatBoost.MaxDepth,
			LearningRate: m.CatBoost.LearningRate,
			L2LeafReg:    m.CatBoost.L2LeafReg,
			Seed:         seed,
		}),
		models.NewRandomForest(ModelRandomForest, models.ForestConfig{
			Estimators:      m.RandomForest.Estimators,
			MaxDepth:        m.RandomForest.MaxDepth,
			MinSamplesSplit: m.RandomForest.MinSamplesSplit,
			MinSamplesLeaf:  m.RandomForest.MinSamplesLeaf,
			Seed:            seed,
		}),
		models.NewGradientBoost(ModelGradientBoosting, models.BoostConfig{
			Estimators:   m.GradientBoosting.Estimators,
			MaxDepth:     m.GradientBoosting.MaxDepth,
			LearningRate: m.GradientBoosting.LearningRate,
			Subsample:    m.GradientBoosting.Subsample,
			Seed:         seed,
		}),
	}

	reg := models.NewRegistry()
	for _, l := range learners {
		if err := reg.Add(l); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Train preprocesses the table, cross-validates and fits every learner in
// parallel, derives the blended weights and installs the new state. Any
// learner failure aborts the run and leaves the previous state in place.
func (p *Predictor) Train(ctx context.Context, tbl dataset.Table) (*Report, error) {
	start := time.Now()

	pipe := pipeline.New(p.logger, TargetColumn, TimeColumn)
	X, y, err := pipe.FitTransform(tbl)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	if len(X) == 0 {
		return nil, errors.New("training requires at least one row")
	}

	folds := p.cfg.Validation.CVFolds
	if folds <= 0 {
		folds = 5
	}
	if len(X) < folds+1 {
		return nil, fmt.Errorf("training requires at least %d rows for %d-fold validation, got %d",
			folds+1, folds, len(X))
	}

	reg, err := buildRegistry(p.cfg)
	if err != nil {
		return nil, err
	}
	splits := timeSeriesSplits(len(X), folds)
	names := reg.Names()

	p.logger.Infow("Training ensemble",
		"rows", len(X),
		"features", len(X[0]),
		"folds", folds,
		"models", names,
	)

	scored := make([]ModelScore, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		model, _ := reg.Get(name)
		g.Go(func() error {
			foldMSE, err := crossValidate(gctx, model, X, y, splits)
			if err != nil {
				return &TrainingError{Model: name, Err: err}
			}
			if err := model.Fit(X, y); err != nil {
				return &TrainingError{Model: name, Err: err}
			}
			scored[i] = foldScore(foldMSE)
			p.logger.Infow("Model trained",
				"model", name,
				"cv_rmse", scored[i].CVRMSE,
				"cv_std", scored[i].CVStd,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores := make(map[string]ModelScore, len(names))
	rmse := make(map[string]float64, len(names))
	for i, name := range names {
		scores[name] = scored[i]
		rmse[name] = scored[i].CVRMSE
	}
	weights := blendWithPriors(performanceWeights(rmse, p.logger), p.cfg.Ensemble)

	p.mu.Lock()
	p.state = &fittedState{
		registry: reg,
		pipe:     pipe,
		weights:  weights,
		scores:   scores,
	}
	p.mu.Unlock()

	duration := time.Since(start)
	p.metrics.observeTraining(scores, weights, duration)
	p.logger.Infow("Ensemble trained",
		"duration", duration,
		"weights", weights,
	)

	return &Report{
		Rows:     len(X),
		Features: len(X[0]),
		Folds:    folds,
		Scores:   scores,
		Weights:  copyWeights(weights),
		Duration: duration,
	}, nil
}

type split struct {
	trainEnd int
	valEnd   int
}

// timeSeriesSplits partitions n chronologically ordered rows into folds
// forward-chaining splits: each fold trains on everything before its
// validation block. Any remainder rows extend the first training block.
func timeSeriesSplits(n, folds int) []split {
	valSize := n / (folds + 1)
	splits := make([]split, folds)
	for i := range splits {
		valStart := n - (folds-i)*valSize
		splits[i] = split{trainEnd: valStart, valEnd: valStart + valSize}
	}
	return splits
}

// crossValidate fits a fresh clone per fold so the caller's learner stays
// untouched, returning the validation MSE of every fold.
func crossValidate(ctx context.Context, model models.Regressor, X [][]float64, y []float64, splits []split) ([]float64, error) {
	foldMSE := make([]float64, len(splits))
	for k, s := range splits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clone := model.Clone()
		if err := clone.Fit(X[:s.trainEnd], y[:s.trainEnd]); err != nil {
			return nil, fmt.Errorf("fold %d fit: %w", k, err)
		}
		pred, err := clone.Predict(X[s.trainEnd:s.valEnd])
		if err != nil {
			return nil, fmt.Errorf("fold %d predict: %w", k, err)
		}
		foldMSE[k] = meanSquaredError(pred, y[s.trainEnd:s.valEnd])
	}
	return foldMSE, nil
}

// foldScore aggregates per-fold MSE into the reported RMSE and its spread
// across folds.
func foldScore(foldMSE []float64) ModelScore {
	foldRMSE := make([]float64, len(foldMSE))
	var meanMSE float64
	for i, mse := range foldMSE {
		foldRMSE[i] = math.Sqrt(mse)
		meanMSE += mse
	}
	meanMSE /= float64(len(foldMSE))

	var meanRMSE float64
	for _, r := range foldRMSE {
		meanRMSE += r
	}
	meanRMSE /= float64(len(foldRMSE))
	var ss float64
	for _, r := range foldRMSE {
		d := r - meanRMSE
		ss += d * d
	}

	return ModelScore{
		CVRMSE:  math.Sqrt(meanMSE),
		CVStd:   math.Sqrt(ss / float64(len(foldRMSE))),
		FoldMSE: foldMSE,
	}
}

func meanSquaredError(pred, y []float64) float64 {
	var sum float64
	for i := range pred {
		d := pred[i] - y[i]
		sum += d * d
	}
	return sum / float64(len(pred))
}

// snapshot returns the current fitted state, nil before training.
func (p *Predictor) snapshot() *fittedState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// IsFitted reports whether the ensemble can serve predictions.
func (p *Predictor) IsFitted() bool { return p.snapshot() != nil }

// Weights returns a copy of the current blended weights, nil before
// training.
func (p *Predictor) Weights() map[string]float64 {
	st := p.snapshot()
	if st == nil {
		return nil
	}
	return copyWeights(st.weights)
}

// Schema returns the feature-column order of the fitted pipeline.
func (p *Predictor) Schema() []string {
	st := p.snapshot()
	if st == nil {
		return nil
	}
	return st.pipe.Schema()
}

// FeatureImportance returns per-model importance vectors in schema order
// for the learners that report them.
func (p *Predictor) FeatureImportance() map[string][]float64 {
	st := p.snapshot()
	if st == nil {
		return nil
	}
	out := make(map[string][]float64)
	for _, name := range st.registry.Names() {
		model, _ := st.registry.Get(name)
		if reporter, ok := model.(models.ImportanceReporter); ok {
			if imp, ok := reporter.FeatureImportances(); ok {
				out[name] = imp
			}
		}
	}
	return out
}
