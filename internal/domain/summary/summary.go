// Package summary folds many scalar tables into per-key statistics.
//
// Keys form a ragged union: a key's statistics are computed only over the
// sources that contain it, so absent sources never count as zero.
package summary

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// Accumulator collects the values of one key
type Accumulator struct {
	values []float64
	sum    float64
	min    float64
	max    float64
}

// Add records one source value
func (a *Accumulator) Add(v float64) {
	if len(a.values) == 0 {
		a.min, a.max = v, v
	} else {
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}
	a.values = append(a.values, v)
	a.sum += v
}

// Count returns the number of values added
func (a *Accumulator) Count() int {
	return len(a.values)
}

// Stat returns the statistics of the values added so far
func (a *Accumulator) Stat() types.SummaryStat {
	n := len(a.values)
	if n == 0 {
		return types.SummaryStat{}
	}

	_, std := stat.PopMeanStdDev(a.values, nil)
	return types.SummaryStat{
		Mean:   a.sum / float64(n),
		Min:    a.min,
		Max:    a.max,
		Count:  n,
		Sum:    a.sum,
		Median: median(a.values),
		Std:    std,
	}
}

// median averages the two middle values of an even-sized sample
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Builder accumulates scalar tables for one run or one sweep
type Builder struct {
	accs    map[string]*Accumulator
	sources int
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{accs: make(map[string]*Accumulator)}
}

// Add folds one source into the builder
func (b *Builder) Add(source types.ScalarTable) {
	b.sources++
	for k, v := range source {
		acc, ok := b.accs[k]
		if !ok {
			acc = &Accumulator{}
			b.accs[k] = acc
		}
		acc.Add(v)
	}
}

// Sources returns how many tables were added
func (b *Builder) Sources() int {
	return b.sources
}

// Table returns the statistics for every key seen
func (b *Builder) Table() types.SummaryTable {
	out := make(types.SummaryTable, len(b.accs))
	for k, acc := range b.accs {
		out[k] = acc.Stat()
	}
	return out
}

// Summarize builds the ragged-union summary of sources
func Summarize(sources []types.ScalarTable) types.SummaryTable {
	b := NewBuilder()
	for _, s := range sources {
		b.Add(s)
	}
	return b.Table()
}
