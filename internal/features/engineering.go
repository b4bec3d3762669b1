// Package features derives additional predictors from raw oceanographic
// readings: polynomial and logarithmic terms, habitat-range indicators,
// cross-attribute interactions and a cyclical month encoding.
package features

import (
	"math"

	"github.com/zyztek/sardinai/internal/dataset"
)

// Habitat ranges for Sardinops sagax; readings inside them get a binary
// indicator feature.
const (
	optimalTempLow   = 16.0
	optimalTempHigh  = 20.0
	highChlorophyll  = 1.0
	optimalDepthLow  = 50.0
	optimalDepthHigh = 150.0
)

// Base attribute names the transform recognizes.
const (
	ColSeaSurfaceTemp = "sea_surface_temp"
	ColChlorophyll    = "chlorophyll"
	ColDepth          = "depth"
	ColMonth          = "month"
)

// Apply returns a new slice of rows with derived features added. Original
// attributes are preserved and input rows are never mutated. A derived
// block is skipped when its base attribute is absent.
func Apply(rows []dataset.Row) []dataset.Row {
	out := make([]dataset.Row, len(rows))
	for i, row := range rows {
		out[i] = applyRow(row)
	}
	return out
}

func applyRow(row dataset.Row) dataset.Row {
	r := row.Clone()

	if r.Has(ColSeaSurfaceTemp) {
		temp := r[ColSeaSurfaceTemp]
		r["temp_squared"] = temp * temp
		r["temp_cubed"] = temp * temp * temp
		r["optimal_temp_range"] = indicator(temp >= optimalTempLow && temp <= optimalTempHigh)
	}

	if r.Has(ColChlorophyll) {
		chl := r[ColChlorophyll]
		r["chlorophyll_squared"] = chl * chl
		r["chlorophyll_log"] = math.Log1p(chl)
		r["high_chlorophyll"] = indicator(chl > highChlorophyll)
	}

	if r.Has(ColDepth) {
		depth := r[ColDepth]
		r["depth_squared"] = depth * depth
		r["depth_log"] = math.Log1p(depth)
		r["optimal_depth"] = indicator(depth >= optimalDepthLow && depth <= optimalDepthHigh)
	}

	if r.Has(ColSeaSurfaceTemp) && r.Has(ColChlorophyll) {
		r["temp_chlorophyll_interaction"] = r[ColSeaSurfaceTemp] * r[ColChlorophyll]
	}
	if r.Has(ColSeaSurfaceTemp) && r.Has(ColDepth) {
		r["temp_depth_interaction"] = r[ColSeaSurfaceTemp] * r[ColDepth]
	}

	if r.Has(ColMonth) {
		month := r[ColMonth]
		r["sin_month"] = math.Sin(2 * math.Pi * month / 12)
		r["cos_month"] = math.Cos(2 * math.Pi * month / 12)
	}

	return r
}

func indicator(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
