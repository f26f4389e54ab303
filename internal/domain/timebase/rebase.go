// Package timebase shifts per-process traces onto one run-wide axis.
package timebase

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// Origin returns the minimum Start over every non-empty key of tables
func Origin(tables ...*types.IntervalTable) (float64, error) {
	origin := math.Inf(1)
	found := false
	for _, t := range tables {
		if t == nil {
			continue
		}
		t.Each(func(_ string, xs []types.Interval) {
			for _, x := range xs {
				if x.Start < origin {
					origin = x.Start
				}
				found = true
			}
		})
	}
	if !found {
		return 0, errors.Wrapf(types.ErrEmptyReferenceSet, "%d tables", len(tables))
	}
	return origin, nil
}

// Rebase returns a copy of table with every bound shifted by -origin.
// Totals are durations and are copied unchanged.
func Rebase(table *types.IntervalTable, origin float64) *types.IntervalTable {
	out := types.NewIntervalTable()
	table.Each(func(key string, xs []types.Interval) {
		shifted := make([]types.Interval, len(xs))
		for i, x := range xs {
			shifted[i] = x.Shift(origin)
		}
		out.Append(key, shifted...)
	})
	for k, v := range table.Totals {
		out.Totals[k] = v
	}
	return out
}

// RebaseAll rebases every table onto origin
func RebaseAll(tables []*types.IntervalTable, origin float64) []*types.IntervalTable {
	out := make([]*types.IntervalTable, len(tables))
	for i, t := range tables {
		if t != nil {
			out[i] = Rebase(t, origin)
		}
	}
	return out
}

// Normalize rebases tables onto their own minimum start
func Normalize(tables []*types.IntervalTable) ([]*types.IntervalTable, float64, error) {
	origin, err := Origin(tables...)
	if err != nil {
		return nil, 0, err
	}
	return RebaseAll(tables, origin), origin, nil
}
