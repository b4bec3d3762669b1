package ensemble

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/zyztek/sardinai/internal/dataset"
)

// Predict preprocesses the rows with the fitted pipeline, runs every
// learner and combines them with the blended weights. Returns the
// post-processed ensemble estimate plus the raw per-model estimates. An
// empty batch yields zero-length outputs for the ensemble and every model.
func (p *Predictor) Predict(rows []dataset.Row) ([]float64, map[string][]float64, error) {
	st := p.snapshot()
	if st == nil {
		return nil, nil, ErrNotFitted
	}

	perModel := make(map[string][]float64, st.registry.Len())
	if len(rows) == 0 {
		for _, name := range st.registry.Names() {
			perModel[name] = []float64{}
		}
		return []float64{}, perModel, nil
	}

	X, err := st.pipe.Transform(dataset.Table{Rows: rows})
	if err != nil {
		return nil, nil, fmt.Errorf("preprocess: %w", err)
	}

	combined := make([]float64, len(X))
	for _, name := range st.registry.Names() {
		model, _ := st.registry.Get(name)
		pred, err := model.Predict(X)
		if err != nil {
			return nil, nil, fmt.Errorf("model %s: %w", name, err)
		}
		perModel[name] = pred
		floats.AddScaled(combined, st.weights[name], pred)
	}

	return postProcess(combined), perModel, nil
}

// postProcess clamps densities to be non-negative and smooths short-range
// jitter with a centered 3-point moving average.
func postProcess(pred []float64) []float64 {
	clamped := make([]float64, len(pred))
	for i, v := range pred {
		clamped[i] = math.Max(0, v)
	}
	return smooth3(clamped)
}

// smooth3 averages each value with its immediate neighbors. Edge values
// use the reduced window actually available instead of padding with zeros,
// so a flat series stays flat.
func smooth3(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		lo := max(0, i-1)
		hi := min(len(v), i+2)
		var sum float64
		for _, x := range v[lo:hi] {
			sum += x
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
