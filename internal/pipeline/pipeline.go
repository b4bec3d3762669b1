// Package pipeline prepares raw tabular batches for the regression models:
// median imputation, feature engineering and standard scaling. The fitted
// statistics (imputation medians, column schema, scaler mean/scale) are
// captured at fit time and reused verbatim for every later transform, so
// inference batches are never allowed to influence the preprocessing.
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/zyztek/sardinai/internal/dataset"
	"github.com/zyztek/sardinai/internal/features"
)

// ErrNotFitted is returned when Transform is called before FitTransform.
var ErrNotFitted = errors.New("pipeline not fitted")

// State is the serializable fitted state of a pipeline.
type State struct {
	TargetColumn string             `json:"target_column"`
	TimeColumn   string             `json:"time_column"`
	BaseColumns  []string           `json:"base_columns"`
	Medians      map[string]float64 `json:"medians"`
	Schema       []string           `json:"schema"`
	Mean         map[string]float64 `json:"mean"`
	Scale        map[string]float64 `json:"scale"`
}

// Pipeline owns the preprocessing steps and their fitted state.
type Pipeline struct {
	logger *zap.SugaredLogger

	target  string
	timeCol string

	fitted bool
	state  State
}

// New creates an unfitted pipeline. target names the label column separated
// out during FitTransform; timeCol names an ordering column excluded from
// the feature set (may be empty).
func New(logger *zap.SugaredLogger, target, timeCol string) *Pipeline {
	return &Pipeline{
		logger:  logger,
		target:  target,
		timeCol: timeCol,
	}
}

// FromState restores a fitted pipeline from persisted state.
func FromState(logger *zap.SugaredLogger, st State) *Pipeline {
	return &Pipeline{
		logger:  logger,
		target:  st.TargetColumn,
		timeCol: st.TimeColumn,
		fitted:  true,
		state:   st,
	}
}

// IsFitted reports whether fitted statistics are available.
func (p *Pipeline) IsFitted() bool { return p.fitted }

// State returns the fitted state for persistence.
func (p *Pipeline) State() (State, error) {
	if !p.fitted {
		return State{}, ErrNotFitted
	}
	return p.state, nil
}

// Schema returns the ordered feature-column names of the output matrix.
func (p *Pipeline) Schema() []string {
	return append([]string(nil), p.state.Schema...)
}

// FitTransform fits the imputation medians, feature schema and scaler on a
// training batch and returns the standardized feature matrix with the
// target vector. A zero-row table yields zero-length outputs and leaves the
// pipeline unfitted.
func (p *Pipeline) FitTransform(tbl dataset.Table) ([][]float64, []float64, error) {
	if tbl.Len() == 0 {
		return [][]float64{}, []float64{}, nil
	}

	y, err := tbl.Targets(p.target)
	if err != nil {
		return nil, nil, fmt.Errorf("separate target: %w", err)
	}

	feats := tbl.Drop(p.target, p.timeCol)
	baseCols := feats.Columns()

	medians := make(map[string]float64, len(baseCols))
	for _, col := range baseCols {
		medians[col] = columnMedian(feats.Rows, col)
	}
	imputed := imputeRows(feats.Rows, baseCols, medians)

	engineered := features.Apply(imputed)

	schema := dataset.Table{Rows: engineered}.Columns()
	mean := make(map[string]float64, len(schema))
	scale := make(map[string]float64, len(schema))
	for _, col := range schema {
		vals := make([]float64, len(engineered))
		for i, row := range engineered {
			vals[i] = row[col]
		}
		m := stat.Mean(vals, nil)
		s := popStdDev(vals, m)
		if s == 0 {
			// Constant column: leave it centered instead of dividing by zero.
			s = 1
		}
		mean[col] = m
		scale[col] = s
	}

	p.state = State{
		TargetColumn: p.target,
		TimeColumn:   p.timeCol,
		BaseColumns:  baseCols,
		Medians:      medians,
		Schema:       schema,
		Mean:         mean,
		Scale:        scale,
	}
	p.fitted = true

	p.logger.Debugw("pipeline fitted",
		"rows", tbl.Len(),
		"base_columns", len(baseCols),
		"schema_columns", len(schema),
	)

	return p.project(engineered), y, nil
}

// Transform applies the fitted preprocessing to an inference batch. Missing
// attributes are imputed with the stored training medians, never with
// statistics of the batch itself. Returns ErrNotFitted before FitTransform.
func (p *Pipeline) Transform(tbl dataset.Table) ([][]float64, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}
	if tbl.Len() == 0 {
		return [][]float64{}, nil
	}

	feats := tbl.Drop(p.target, p.timeCol)
	imputed := imputeRows(feats.Rows, p.state.BaseColumns, p.state.Medians)
	engineered := features.Apply(imputed)

	return p.project(engineered), nil
}

// project emits the fixed-width standardized matrix in schema order.
func (p *Pipeline) project(rows []dataset.Row) [][]float64 {
	X := make([][]float64, len(rows))
	for i, row := range rows {
		vec := make([]float64, len(p.state.Schema))
		for j, col := range p.state.Schema {
			v, ok := row[col]
			if !ok || math.IsNaN(v) {
				// Column unseen for this row; centering maps it to zero.
				v = p.state.Mean[col]
			}
			vec[j] = (v - p.state.Mean[col]) / p.state.Scale[col]
		}
		X[i] = vec
	}
	return X
}

func imputeRows(rows []dataset.Row, cols []string, medians map[string]float64) []dataset.Row {
	out := make([]dataset.Row, len(rows))
	for i, row := range rows {
		c := row.Clone()
		for _, col := range cols {
			if !c.Has(col) {
				c[col] = medians[col]
			}
		}
		out[i] = c
	}
	return out
}

// columnMedian computes the median over present, non-NaN values of a
// column. Returns 0 when nothing is observed.
func columnMedian(rows []dataset.Row, col string) float64 {
	vals := make([]float64, 0, len(rows))
	for _, row := range rows {
		if row.Has(col) {
			vals = append(vals, row[col])
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	return stat.Quantile(0.5, stat.LinInterp, vals, nil)
}

func popStdDev(vals []float64, mean float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)))
}
