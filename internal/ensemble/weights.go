package ensemble

import (
	"go.uber.org/zap"
)

// maxPerformanceWeight caps the reciprocal of a near-zero validation RMSE
// so a degenerate fold score can never poison the weight vector with an
// infinity.
const maxPerformanceWeight = 1e6

// performanceWeights turns per-model RMSE into normalized reciprocal
// weights: lower error, higher weight.
func performanceWeights(rmse map[string]float64, logger *zap.SugaredLogger) map[string]float64 {
	perf := make(map[string]float64, len(rmse))
	for name, r := range rmse {
		w := maxPerformanceWeight
		if r > 1/maxPerformanceWeight {
			w = 1 / r
		} else {
			logger.Warnw("Near-zero validation error, capping performance weight",
				"model", name, "rmse", r)
		}
		perf[name] = w
	}
	normalizeWeights(perf)
	return perf
}

// blendWithPriors averages each performance weight with its configured
// prior, leaving identities without a prior untouched, then re-normalizes.
func blendWithPriors(perf, priors map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(perf))
	for name, w := range perf {
		if prior, ok := priors[name]; ok {
			w = (w + prior) / 2
		}
		out[name] = w
	}
	normalizeWeights(out)
	return out
}

// normalizeWeights scales the map to sum to 1 in place. A non-positive
// total degrades to uniform weights.
func normalizeWeights(w map[string]float64) {
	var total float64
	for _, v := range w {
		total += v
	}
	if total <= 0 {
		for k := range w {
			w[k] = 1 / float64(len(w))
		}
		return
	}
	for k := range w {
		w[k] /= total
	}
}

func copyWeights(w map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
