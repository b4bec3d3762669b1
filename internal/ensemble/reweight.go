package ensemble

import (
	"errors"
	"fmt"
	"math"

	"github.com/zyztek/sardinai/internal/dataset"
)

// Reweight scores the already-fitted models on a fresh labeled batch and
// rebuilds the blended weight set from their errors. Models are not refit
// and the pipeline statistics stay frozen. The new weights replace the old
// ones atomically and are returned as a copy.
func (p *Predictor) Reweight(tbl dataset.Table) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == nil {
		return nil, ErrNotFitted
	}
	st := p.state

	y, err := tbl.Targets(TargetColumn)
	if err != nil {
		return nil, fmt.Errorf("separate target: %w", err)
	}
	X, err := st.pipe.Transform(tbl)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	if len(X) == 0 {
		return nil, errors.New("reweighting requires at least one row")
	}

	rmse := make(map[string]float64, st.registry.Len())
	for _, name := range st.registry.Names() {
		model, _ := st.registry.Get(name)
		pred, err := model.Predict(X)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		rmse[name] = math.Sqrt(meanSquaredError(pred, y))
	}

	weights := blendWithPriors(performanceWeights(rmse, p.logger), p.cfg.Ensemble)

	// Swap in a fresh state so concurrent readers never observe a
	// half-updated weight map.
	next := *st
	next.weights = weights
	p.state = &next

	p.metrics.observeWeights(weights)
	p.logger.Infow("Updated ensemble weights", "rows", len(X), "weights", weights)
	return copyWeights(weights), nil
}
