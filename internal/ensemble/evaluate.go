package ensemble

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/zyztek/sardinai/internal/dataset"
)

// EnsembleKey indexes the combined estimate in Evaluate's result.
const EnsembleKey = "ensemble"

// EvalMetrics holds regression metrics against held-out labels.
type EvalMetrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// Evaluate scores the ensemble and every individual model on a labeled
// table, keyed by model identity plus EnsembleKey.
func (p *Predictor) Evaluate(tbl dataset.Table) (map[string]EvalMetrics, error) {
	y, err := tbl.Targets(TargetColumn)
	if err != nil {
		return nil, fmt.Errorf("separate target: %w", err)
	}

	combined, perModel, err := p.Predict(tbl.Rows)
	if err != nil {
		return nil, err
	}
	if len(y) == 0 {
		return map[string]EvalMetrics{}, nil
	}

	out := make(map[string]EvalMetrics, len(perModel)+1)
	out[EnsembleKey] = computeMetrics(combined, y)
	for name, pred := range perModel {
		out[name] = computeMetrics(pred, y)
	}
	return out, nil
}

func computeMetrics(pred, y []float64) EvalMetrics {
	var mae float64
	for i := range pred {
		mae += math.Abs(pred[i] - y[i])
	}
	mae /= float64(len(pred))

	return EvalMetrics{
		RMSE: math.Sqrt(meanSquaredError(pred, y)),
		MAE:  mae,
		R2:   stat.RSquaredFrom(pred, y, nil),
	}
}
