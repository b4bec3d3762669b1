// Package dataset holds the tabular batch types exchanged between the
// preprocessing pipeline and its callers. A Row maps named environmental
// attributes to numeric values; absent keys (or NaN values) mean the
// attribute was not observed for that row.
package dataset

import (
	"fmt"
	"math"
	"sort"
)

// Row is one observation: named numeric attributes, e.g. sea_surface_temp,
// chlorophyll, depth, salinity, current_speed, month.
type Row map[string]float64

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the attribute is present and numeric.
func (r Row) Has(name string) bool {
	v, ok := r[name]
	return ok && !math.IsNaN(v)
}

// Table is an ordered sequence of rows. Order is temporally meaningful:
// the trainer's validation scheme assumes rows are in collection order.
type Table struct {
	Rows []Row
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Columns returns the sorted union of attribute names across all rows,
// excluding the given names.
func (t Table) Columns(exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		for name := range row {
			if !skip[name] {
				seen[name] = true
			}
		}
	}
	cols := make([]string, 0, len(seen))
	for name := range seen {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

// Targets extracts the named column from every row. Every row must carry
// the column with a numeric value.
func (t Table) Targets(name string) ([]float64, error) {
	y := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		v, ok := row[name]
		if !ok || math.IsNaN(v) {
			return nil, fmt.Errorf("row %d: missing target column %q", i, name)
		}
		y[i] = v
	}
	return y, nil
}

// Drop returns a copy of the table with the given columns removed from
// every row.
func (t Table) Drop(cols ...string) Table {
	out := Table{Rows: make([]Row, len(t.Rows))}
	for i, row := range t.Rows {
		c := row.Clone()
		for _, name := range cols {
			delete(c, name)
		}
		out.Rows[i] = c
	}
	return out
}
