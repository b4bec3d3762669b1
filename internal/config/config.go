// Package config loads the engine configuration from a YAML file with
// viper, falling back to built-in defaults when the file is absent or
// malformed so a bad deployment never blocks training.
package config

import (
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// GBTParams configures one gradient boosted learner.
type GBTParams struct {
	Estimators      int     `mapstructure:"n_estimators" json:"n_estimators"`
	MaxDepth        int     `mapstructure:"max_depth" json:"max_depth"`
	LearningRate    float64 `mapstructure:"learning_rate" json:"learning_rate"`
	Subsample       float64 `mapstructure:"subsample" json:"subsample,omitempty"`
	ColsampleByTree float64 `mapstructure:"colsample_bytree" json:"colsample_bytree,omitempty"`
	NumLeaves       int     `mapstructure:"num_leaves" json:"num_leaves,omitempty"`
	FeatureFraction float64 `mapstructure:"feature_fraction" json:"feature_fraction,omitempty"`
	L2LeafReg       float64 `mapstructure:"l2_leaf_reg" json:"l2_leaf_reg,omitempty"`
}

// RFParams configures the random forest learner.
type RFParams struct {
	Estimators      int `mapstructure:"n_estimators" json:"n_estimators"`
	MaxDepth        int `mapstructure:"max_depth" json:"max_depth"`
	MinSamplesSplit int `mapstructure:"min_samples_split" json:"min_samples_split"`
	MinSamplesLeaf  int `mapstructure:"min_samples_leaf" json:"min_samples_leaf"`
}

// ModelsConfig carries per-learner hyperparameters keyed by identity.
type ModelsConfig struct {
	XGBoost          GBTParams `mapstructure:"xgboost" json:"xgboost"`
	LightGBM         GBTParams `mapstructure:"lightgbm" json:"lightgbm"`
	CatBoost         GBTParams `mapstructure:"catboost" json:"catboost"`
	RandomForest     RFParams  `mapstructure:"random_forest" json:"random_forest"`
	GradientBoosting GBTParams `mapstructure:"gradient_boosting" json:"gradient_boosting"`
}

// ValidationConfig controls cross-validation and data splitting.
type ValidationConfig struct {
	CVFolds     int     `mapstructure:"cv_folds" json:"cv_folds"`
	TestSize    float64 `mapstructure:"test_size" json:"test_size"`
	RandomState int64   `mapstructure:"random_state" json:"random_state"`
}

// Config is the full engine configuration.
type Config struct {
	// Ensemble maps learner identities to prior weights. Identities
	// without a prior keep their performance-derived weight untouched.
	Ensemble   map[string]float64 `mapstructure:"ensemble" json:"ensemble"`
	Models     ModelsConfig       `mapstructure:"models" json:"models"`
	Validation ValidationConfig   `mapstructure:"validation" json:"validation"`
}

// Default returns the built-in configuration used when no file is given
// or the file cannot be read.
func Default() Config {
	return Config{
		Ensemble: map[string]float64{
			"xgboost":           0.3,
			"lightgbm":          0.25,
			"catboost":          0.2,
			"random_forest":     0.15,
			"gradient_boosting": 0.1,
		},
		Models: ModelsConfig{
			XGBoost: GBTParams{
				Estimators:      500,
				MaxDepth:        8,
				LearningRate:    0.05,
				Subsample:       0.8,
				ColsampleByTree: 0.8,
			},
			LightGBM: GBTParams{
				Estimators:      500,
				MaxDepth:        8,
				LearningRate:    0.05,
				NumLeaves:       50,
				FeatureFraction: 0.8,
			},
			CatBoost: GBTParams{
				Estimators:   500,
				MaxDepth:     8,
				LearningRate: 0.05,
				L2LeafReg:    3,
			},
			RandomForest: RFParams{
				Estimators:      300,
				MaxDepth:        12,
				MinSamplesSplit: 5,
				MinSamplesLeaf:  2,
			},
			GradientBoosting: GBTParams{
				Estimators:   300,
				MaxDepth:     8,
				LearningRate: 0.05,
				Subsample:    0.8,
			},
		},
		Validation: ValidationConfig{
			CVFolds:     5,
			TestSize:    0.2,
			RandomState: 42,
		},
	}
}

// Load reads the configuration at path, merging it over the defaults.
// A missing or malformed file is logged and the defaults returned; a
// partial file only overrides the sections it names.
func Load(path string, logger *zap.SugaredLogger) Config {
	cfg := Default()
	if path == "" {
		return cfg
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("Config file unreadable, using defaults", "path", path, "error", err)
		return Default()
	}
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Warnw("Config file invalid, using defaults", "path", path, "error", err)
		return Default()
	}

	logger.Infow("Loaded configuration", "path", path)
	return cfg
}
