package ensemble

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zyztek/sardinai/internal/config"
	"github.com/zyztek/sardinai/internal/dataset"
)

// testConfig shrinks the learners so training stays fast.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.Models.XGBoost.Estimators = 10
	cfg.Models.XGBoost.MaxDepth = 3
	cfg.Models.LightGBM.Estimators = 10
	cfg.Models.LightGBM.MaxDepth = 3
	cfg.Models.CatBoost.Estimators = 10
	cfg.Models.CatBoost.MaxDepth = 3
	cfg.Models.RandomForest.Estimators = 10
	cfg.Models.RandomForest.MaxDepth = 4
	cfg.Models.GradientBoosting.Estimators = 10
	cfg.Models.GradientBoosting.MaxDepth = 3
	return cfg
}

// syntheticTable builds ordered oceanographic rows with a density that
// actually depends on the conditions, plus noise.
func syntheticTable(n int, seed int64) dataset.Table {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]dataset.Row, n)
	for i := range rows {
		temp := 18 + 2*rng.NormFloat64()
		chl := math.Exp(0.5 * rng.NormFloat64())
		depth := 10 + 190*rng.Float64()
		density := 2*chl + 0.3*(20-math.Abs(temp-18)) + 0.2*rng.NormFloat64()
		rows[i] = dataset.Row{
			"timestamp":        float64(i),
			"sea_surface_temp": temp,
			"chlorophyll":      chl,
			"depth":            depth,
			"salinity":         34.5 + 0.5*rng.NormFloat64(),
			"current_speed":    0.5 * rng.ExpFloat64(),
			"month":            float64(1 + rng.Intn(12)),
			"sardine_density":  math.Max(0, density),
		}
	}
	return dataset.Table{Rows: rows}
}

func trainedPredictor(t *testing.T) (*Predictor, dataset.Table, *Report) {
	t.Helper()
	tbl := syntheticTable(120, 7)
	p := New(testConfig(), zaptest.NewLogger(t).Sugar())
	report, err := p.Train(context.Background(), tbl)
	require.NoError(t, err)
	return p, tbl, report
}

func TestTrainProducesNormalizedWeights(t *testing.T) {
	p, _, report := trainedPredictor(t)

	weights := p.Weights()
	require.Len(t, weights, 5)
	var total float64
	for name, w := range weights {
		assert.GreaterOrEqual(t, w, 0.0, "weight for %s", name)
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-6)
	assert.Equal(t, weights, report.Weights)
}

func TestTrainReportsFoldScores(t *testing.T) {
	_, _, report := trainedPredictor(t)

	assert.Equal(t, 120, report.Rows)
	assert.Equal(t, 5, report.Folds)
	require.Len(t, report.Scores, 5)
	for name, s := range report.Scores {
		assert.Len(t, s.FoldMSE, 5, "model %s", name)
		assert.Greater(t, s.CVRMSE, 0.0, "model %s", name)
		assert.GreaterOrEqual(t, s.CVStd, 0.0, "model %s", name)
	}
}

func TestTrainRequiresEnoughRows(t *testing.T) {
	p := New(testConfig(), zaptest.NewLogger(t).Sugar())

	_, err := p.Train(context.Background(), syntheticTable(0, 1))
	assert.Error(t, err)

	_, err = p.Train(context.Background(), syntheticTable(4, 1))
	assert.Error(t, err, "fewer rows than folds+1 must be rejected")
	assert.False(t, p.IsFitted())
}

func TestTimeSeriesSplits(t *testing.T) {
	splits := timeSeriesSplits(12, 5)
	require.Len(t, splits, 5)

	assert.Equal(t, split{trainEnd: 2, valEnd: 4}, splits[0])
	assert.Equal(t, split{trainEnd: 10, valEnd: 12}, splits[4])
	for i := 1; i < len(splits); i++ {
		assert.Equal(t, splits[i-1].valEnd, splits[i].trainEnd, "folds must chain forward")
	}
}

func TestPerformanceWeights(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()

	t.Run("LowerErrorWinsMoreWeight", func(t *testing.T) {
		w := performanceWeights(map[string]float64{"a": 1.0, "b": 2.0}, logger)
		assert.InDelta(t, 2.0/3.0, w["a"], 1e-9)
		assert.InDelta(t, 1.0/3.0, w["b"], 1e-9)
	})

	t.Run("ZeroErrorIsCappedFinite", func(t *testing.T) {
		w := performanceWeights(map[string]float64{"perfect": 0, "other": 1.0}, logger)
		for name, v := range w {
			assert.False(t, math.IsInf(v, 0), name)
			assert.False(t, math.IsNaN(v), name)
		}
		assert.Greater(t, w["perfect"], w["other"])
	})
}

func TestBlendWithPriors(t *testing.T) {
	blended := blendWithPriors(
		map[string]float64{"a": 0.5, "b": 0.5},
		map[string]float64{"a": 0.6, "b": 0.4},
	)
	assert.InDelta(t, 0.55, blended["a"], 1e-9)
	assert.InDelta(t, 0.45, blended["b"], 1e-9)

	t.Run("IdentityWithoutPriorKeepsPerformanceWeight", func(t *testing.T) {
		blended := blendWithPriors(
			map[string]float64{"a": 0.5, "b": 0.5},
			map[string]float64{"a": 0.5},
		)
		assert.InDelta(t, 0.5, blended["a"], 1e-9)
		assert.InDelta(t, 0.5, blended["b"], 1e-9)
	})
}

func TestPredictBeforeTrain(t *testing.T) {
	p := New(testConfig(), zaptest.NewLogger(t).Sugar())
	rows := syntheticTable(3, 2).Rows

	_, _, err := p.Predict(rows)
	assert.ErrorIs(t, err, ErrNotFitted)

	_, _, err = p.PredictWithUncertainty(rows, 10)
	assert.ErrorIs(t, err, ErrNotFitted)

	_, err = p.Reweight(dataset.Table{Rows: rows})
	assert.ErrorIs(t, err, ErrNotFitted)

	assert.Nil(t, p.Weights())
	assert.Nil(t, p.Schema())
}

func TestPredictOutputs(t *testing.T) {
	p, tbl, _ := trainedPredictor(t)
	rows := tbl.Rows[:20]

	combined, perModel, err := p.Predict(rows)
	require.NoError(t, err)
	require.Len(t, combined, 20)
	require.Len(t, perModel, 5)

	for _, v := range combined {
		assert.GreaterOrEqual(t, v, 0.0, "densities are clamped non-negative")
	}
	for name, pred := range perModel {
		assert.Len(t, pred, 20, "model %s", name)
	}

	t.Run("Deterministic", func(t *testing.T) {
		again, _, err := p.Predict(rows)
		require.NoError(t, err)
		assert.Equal(t, combined, again)
	})
}

func TestPredictEmptyBatch(t *testing.T) {
	p, _, _ := trainedPredictor(t)

	combined, perModel, err := p.Predict(nil)
	require.NoError(t, err)
	assert.Empty(t, combined)
	require.Len(t, perModel, 5)
	for name, pred := range perModel {
		assert.Empty(t, pred, "model %s", name)
	}
}

func TestSmooth3(t *testing.T) {
	out := smooth3([]float64{0, 3, 6, 9})
	assert.InDeltaSlice(t, []float64{1.5, 3, 6, 7.5}, out, 1e-9)

	t.Run("FlatStaysFlat", func(t *testing.T) {
		out := smooth3([]float64{2, 2, 2})
		assert.InDeltaSlice(t, []float64{2, 2, 2}, out, 1e-9)
	})

	t.Run("SingleValue", func(t *testing.T) {
		assert.Equal(t, []float64{5}, smooth3([]float64{5}))
	})
}

func TestPredictWithUncertainty(t *testing.T) {
	p, tbl, _ := trainedPredictor(t)
	rows := tbl.Rows[:15]

	mean, std, err := p.PredictWithUncertainty(rows, 20)
	require.NoError(t, err)
	require.Len(t, mean, 15)
	require.Len(t, std, 15)
	for i := range std {
		assert.GreaterOrEqual(t, std[i], 0.0)
		assert.False(t, math.IsNaN(mean[i]))
	}

	t.Run("DeterministicUnderFixedState", func(t *testing.T) {
		mean2, std2, err := p.PredictWithUncertainty(rows, 20)
		require.NoError(t, err)
		assert.Equal(t, mean, mean2)
		assert.Equal(t, std, std2)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		mean, std, err := p.PredictWithUncertainty(nil, 20)
		require.NoError(t, err)
		assert.Empty(t, mean)
		assert.Empty(t, std)
	})
}

func TestReweight(t *testing.T) {
	p, _, _ := trainedPredictor(t)
	fresh := syntheticTable(40, 99)

	before, perModelBefore, err := p.Predict(fresh.Rows)
	require.NoError(t, err)

	weights, err := p.Reweight(fresh)
	require.NoError(t, err)
	require.Len(t, weights, 5)
	var total float64
	for _, w := range weights {
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-6)
	assert.Equal(t, weights, p.Weights())

	// Models are scored, not refit: their raw estimates are unchanged,
	// only the blend moves.
	after, perModelAfter, err := p.Predict(fresh.Rows)
	require.NoError(t, err)
	assert.Equal(t, perModelBefore, perModelAfter)
	assert.Len(t, after, len(before))
}

func TestEvaluate(t *testing.T) {
	p, tbl, _ := trainedPredictor(t)

	metrics, err := p.Evaluate(tbl)
	require.NoError(t, err)
	require.Len(t, metrics, 6)
	require.Contains(t, metrics, EnsembleKey)

	for name, m := range metrics {
		assert.GreaterOrEqual(t, m.RMSE, 0.0, name)
		assert.GreaterOrEqual(t, m.MAE, 0.0, name)
		assert.False(t, math.IsNaN(m.R2), name)
	}

	t.Run("MissingTarget", func(t *testing.T) {
		rows := []dataset.Row{{"sea_surface_temp": 18.0}}
		_, err := p.Evaluate(dataset.Table{Rows: rows})
		assert.Error(t, err)
	})
}

func TestFeatureImportance(t *testing.T) {
	p, _, _ := trainedPredictor(t)

	schema := p.Schema()
	require.NotEmpty(t, schema)

	importance := p.FeatureImportance()
	require.Len(t, importance, 5)
	for name, imp := range importance {
		assert.Len(t, imp, len(schema), "model %s reports one score per schema column", name)
	}
}
