package ensemble

import (
	"math"
	"math/rand"

	"github.com/zyztek/sardinai/internal/dataset"
)

// defaultBootstrapSamples is used when the caller passes a non-positive
// sample count.
const defaultBootstrapSamples = 100

// PredictWithUncertainty bootstraps the input batch: it predicts on
// resampled-with-replacement copies of the rows and reports the per-position
// mean and standard deviation across resamples. The spread reflects how
// sensitive the estimate at each position is to the composition of the
// batch. Deterministic under the configured random state.
func (p *Predictor) PredictWithUncertainty(rows []dataset.Row, samples int) (mean, std []float64, err error) {
	st := p.snapshot()
	if st == nil {
		return nil, nil, ErrNotFitted
	}
	if samples <= 0 {
		samples = defaultBootstrapSamples
	}
	if len(rows) == 0 {
		return []float64{}, []float64{}, nil
	}

	rng := rand.New(rand.NewSource(p.cfg.Validation.RandomState))
	n := len(rows)
	sum := make([]float64, n)
	sumSq := make([]float64, n)
	resampled := make([]dataset.Row, n)

	for s := 0; s < samples; s++ {
		for i := range resampled {
			resampled[i] = rows[rng.Intn(n)]
		}
		pred, _, err := p.Predict(resampled)
		if err != nil {
			return nil, nil, err
		}
		for i, v := range pred {
			sum[i] += v
			sumSq[i] += v * v
		}
	}

	mean = make([]float64, n)
	std = make([]float64, n)
	for i := range mean {
		m := sum[i] / float64(samples)
		mean[i] = m
		variance := sumSq[i]/float64(samples) - m*m
		if variance < 0 {
			// Guard against tiny negative values from rounding.
			variance = 0
		}
		std[i] = math.Sqrt(variance)
	}
	return mean, std, nil
}
