package interval

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// Policy decides whether touching intervals merge
type Policy int

const (
	// Inclusive merges intervals whose endpoints touch
	Inclusive Policy = iota
	// Exclusive merges only strictly overlapping intervals
	Exclusive
)

func (p Policy) String() string {
	switch p {
	case Inclusive:
		return "inclusive"
	case Exclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// ParsePolicy converts "inclusive" or "exclusive"; empty means Inclusive
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inclusive":
		return Inclusive, nil
	case "exclusive":
		return Exclusive, nil
	default:
		return Inclusive, errors.Newf("unknown boundary policy %q (want inclusive or exclusive)", s)
	}
}

// joins reports whether next extends a merged interval ending at end
func (p Policy) joins(end, next float64) bool {
	if p == Exclusive {
		return next < end
	}
	return next <= end
}

// Overlaps reports whether closed intervals a and b share a point
func Overlaps(a, b types.Interval) bool {
	return a.Start <= b.End && b.Start <= a.End
}

// SortByStart returns a copy sorted by Start; equal starts keep input order
func SortByStart(xs []types.Interval) []types.Interval {
	out := make([]types.Interval, len(xs))
	copy(out, xs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

// Coalesce merges overlapping intervals into sorted, disjoint spans.
// The input is not modified.
func Coalesce(xs []types.Interval, policy Policy) []types.Interval {
	if len(xs) == 0 {
		return []types.Interval{}
	}

	sorted := SortByStart(xs)
	out := make([]types.Interval, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if policy.joins(cur.End, next.Start) {
			if next.End > cur.End {
				cur.End = next.End
			}
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}

// Gaps returns the idle spans between consecutive coalesced intervals
func Gaps(coalesced []types.Interval) ([]types.Interval, error) {
	if len(coalesced) < 2 {
		return nil, errors.Wrapf(types.ErrInsufficientData, "gaps need 2 intervals, got %d", len(coalesced))
	}

	gaps := make([]types.Interval, 0, len(coalesced)-1)
	for i := 1; i < len(coalesced); i++ {
		prev, next := coalesced[i-1], coalesced[i]
		if prev.End < next.Start {
			gaps = append(gaps, types.Interval{Start: prev.End, End: next.Start})
		}
	}
	return gaps, nil
}

// TotalLength sums durations; empty input is 0
func TotalLength(xs []types.Interval) float64 {
	total := 0.0
	for _, x := range xs {
		total += x.Duration()
	}
	return total
}

// Durations returns End - Start for every interval
func Durations(xs []types.Interval) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x.Duration()
	}
	return out
}

// DurationStats reduces interval durations. Std is the population
// standard deviation.
func DurationStats(xs []types.Interval) (types.DurationStats, error) {
	if len(xs) == 0 {
		return types.DurationStats{}, errors.Wrap(types.ErrInsufficientData, "duration stats need 1 interval")
	}

	ds := Durations(xs)
	mean, std := stat.PopMeanStdDev(ds, nil)

	out := types.DurationStats{
		Count: len(ds),
		Mean:  mean,
		Std:   std,
		Min:   ds[0],
		Max:   ds[0],
	}
	for _, d := range ds {
		out.Total += d
		out.Min = min(out.Min, d)
		out.Max = max(out.Max, d)
	}
	return out, nil
}

// MergeAllKeys flattens a table in key order, then log order
func MergeAllKeys(table *types.IntervalTable) []types.Interval {
	out := make([]types.Interval, 0, table.Count())
	table.Each(func(_ string, xs []types.Interval) {
		out = append(out, xs...)
	})
	return out
}

// CoalesceTable coalesces every key independently
func CoalesceTable(table *types.IntervalTable, policy Policy) *types.IntervalTable {
	out := types.NewIntervalTable()
	table.Each(func(key string, xs []types.Interval) {
		out.Append(key, Coalesce(xs, policy)...)
	})
	for k, v := range table.Totals {
		out.Totals[k] = v
	}
	return out
}
