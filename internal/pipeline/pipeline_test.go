package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zyztek/sardinai/internal/dataset"
)

func newTestPipeline(t *testing.T) *Pipeline {
	return New(zaptest.NewLogger(t).Sugar(), "sardine_density", "timestamp")
}

func trainingTable() dataset.Table {
	return dataset.Table{Rows: []dataset.Row{
		{"sea_surface_temp": 16.0, "chlorophyll": 0.8, "depth": 60.0, "month": 1.0, "sardine_density": 1.2},
		{"sea_surface_temp": 18.0, "chlorophyll": 1.2, "depth": 90.0, "month": 2.0, "sardine_density": 2.4},
		{"sea_surface_temp": 20.0, "chlorophyll": 1.6, "depth": 120.0, "month": 3.0, "sardine_density": 1.8},
		{"sea_surface_temp": 17.0, "chlorophyll": 0.9, "depth": 80.0, "month": 4.0, "sardine_density": 0.9},
	}}
}

func TestFitTransformShapes(t *testing.T) {
	p := newTestPipeline(t)

	X, y, err := p.FitTransform(trainingTable())
	require.NoError(t, err)

	require.Len(t, X, 4)
	require.Len(t, y, 4)
	assert.Equal(t, []float64{1.2, 2.4, 1.8, 0.9}, y)

	width := len(p.Schema())
	assert.Greater(t, width, 4, "engineering must widen the feature set")
	for _, row := range X {
		require.Len(t, row, width)
		for _, v := range row {
			assert.False(t, math.IsNaN(v), "output matrix must not contain NaN")
		}
	}
}

func TestTransformBeforeFitFails(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.Transform(trainingTable())
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestImputationUsesBatchMedianAtFit(t *testing.T) {
	p := newTestPipeline(t)

	tbl := dataset.Table{Rows: []dataset.Row{
		{"sea_surface_temp": 15.0, "sardine_density": 1.0},
		{"sea_surface_temp": 17.0, "sardine_density": 1.0},
		{"sea_surface_temp": 25.0, "sardine_density": 1.0},
		{"sardine_density": 1.0}, // missing temperature
	}}
	_, _, err := p.FitTransform(tbl)
	require.NoError(t, err)

	st, err := p.State()
	require.NoError(t, err)
	assert.InDelta(t, 17.0, st.Medians["sea_surface_temp"], 1e-9)
}

func TestTransformUsesTrainingMedians(t *testing.T) {
	p := newTestPipeline(t)
	_, _, err := p.FitTransform(trainingTable())
	require.NoError(t, err)

	// Training medians: temp 17.5. A single-row inference batch with a
	// missing temperature must be imputed from training state, which a
	// batch-local median could not even provide here.
	complete := dataset.Table{Rows: []dataset.Row{
		{"sea_surface_temp": 17.5, "chlorophyll": 1.0, "depth": 85.0, "month": 2.0},
	}}
	missing := dataset.Table{Rows: []dataset.Row{
		{"chlorophyll": 1.0, "depth": 85.0, "month": 2.0},
	}}

	wantX, err := p.Transform(complete)
	require.NoError(t, err)
	gotX, err := p.Transform(missing)
	require.NoError(t, err)

	require.Len(t, gotX, 1)
	for j := range wantX[0] {
		assert.InDelta(t, wantX[0][j], gotX[0][j], 1e-9)
	}
}

func TestSchemaStableBetweenFitAndTransform(t *testing.T) {
	p := newTestPipeline(t)
	fitX, _, err := p.FitTransform(trainingTable())
	require.NoError(t, err)

	X, err := p.Transform(trainingTable().Drop("sardine_density"))
	require.NoError(t, err)

	require.Len(t, X, len(fitX))
	for i := range X {
		require.Len(t, X[i], len(fitX[i]))
		for j := range X[i] {
			assert.InDelta(t, fitX[i][j], X[i][j], 1e-9)
		}
	}
}

func TestScalerStandardizes(t *testing.T) {
	p := newTestPipeline(t)
	X, _, err := p.FitTransform(trainingTable())
	require.NoError(t, err)

	// Each column of the training output has zero mean and unit variance
	// (or is constant and merely centered).
	for j := range X[0] {
		var sum, ss float64
		for i := range X {
			sum += X[i][j]
		}
		m := sum / float64(len(X))
		for i := range X {
			d := X[i][j] - m
			ss += d * d
		}
		v := ss / float64(len(X))
		assert.InDelta(t, 0.0, m, 1e-9)
		if v > 1e-12 {
			assert.InDelta(t, 1.0, v, 1e-9)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	p := newTestPipeline(t)

	X, y, err := p.FitTransform(dataset.Table{})
	require.NoError(t, err)
	assert.Empty(t, X)
	assert.Empty(t, y)
	assert.False(t, p.IsFitted())

	_, _, err = p.FitTransform(trainingTable())
	require.NoError(t, err)

	out, err := p.Transform(dataset.Table{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMissingTargetColumn(t *testing.T) {
	p := newTestPipeline(t)

	_, _, err := p.FitTransform(dataset.Table{Rows: []dataset.Row{
		{"sea_surface_temp": 18.0},
	}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sardine_density")
}

func TestStateRoundTrip(t *testing.T) {
	p := newTestPipeline(t)
	_, _, err := p.FitTransform(trainingTable())
	require.NoError(t, err)

	st, err := p.State()
	require.NoError(t, err)

	restored := FromState(zaptest.NewLogger(t).Sugar(), st)
	assert.True(t, restored.IsFitted())

	in := trainingTable().Drop("sardine_density")
	want, err := p.Transform(in)
	require.NoError(t, err)
	got, err := restored.Transform(in)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
