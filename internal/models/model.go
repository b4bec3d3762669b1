// Package models implements the regression learners behind the ensemble:
// a CART regression tree as the shared building block, a bagged random
// forest and a configurable gradient booster. All learners are
// deterministic under their configured seed and operate on the fixed-width
// numeric matrix produced by the preprocessing pipeline.
package models

import (
	"errors"
	"fmt"
)

// ErrNotFitted is returned by Predict before Fit has completed.
var ErrNotFitted = errors.New("model not fitted")

// Regressor is a single independently trainable regression learner.
type Regressor interface {
	Name() string
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
	// Clone returns a fresh unfitted learner with the same configuration
	// and seed. Cross-validation fits clones so the final full-data fit
	// stays independent of the fold fits.
	Clone() Regressor
}

// ImportanceReporter is implemented by learners that can attribute their
// fit to individual input features. Callers must check for this interface
// rather than assume every learner supports it.
type ImportanceReporter interface {
	// FeatureImportances returns per-feature scores in matrix column
	// order, and false when no fit has produced them yet.
	FeatureImportances() ([]float64, bool)
}

// validateTrainingData checks shape invariants shared by every learner and
// returns the feature width.
func validateTrainingData(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, errors.New("empty training data")
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("feature and label count mismatch: %d rows, %d labels", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return 0, errors.New("features have zero dimensions")
	}
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("inconsistent feature dimensions at sample %d: expected %d, got %d", i, width, len(row))
		}
	}
	return width, nil
}

func validateWidth(X [][]float64, want int) error {
	for i, row := range X {
		if len(row) != want {
			return fmt.Errorf("sample %d has %d features, model was trained on %d", i, len(row), want)
		}
	}
	return nil
}

// normalizeImportance scales scores to sum to 1 when any signal exists.
func normalizeImportance(imp []float64) {
	var total float64
	for _, v := range imp {
		total += v
	}
	if total <= 0 {
		return
	}
	for i := range imp {
		imp[i] /= total
	}
}
