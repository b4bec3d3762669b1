package ensemble

import (
	"errors"
	"fmt"
)

// ErrNotFitted is returned by prediction, evaluation and persistence
// operations before a successful Train or Load.
var ErrNotFitted = errors.New("ensemble not fitted")

// TrainingError reports which learner failed during training. A single
// failing learner aborts the whole run; no partial ensemble is installed.
type TrainingError struct {
	Model string
	Err   error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training model %s: %v", e.Model, e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }
