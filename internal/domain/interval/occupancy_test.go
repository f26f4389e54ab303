package interval

import (
	"math"
	"sort"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

func TestOccupy(t *testing.T) {
	occ, err := Occupy([]types.Interval{iv(10, 12), iv(0, 2), iv(1, 3), iv(5, 6)}, Inclusive)
	require.NoError(t, err)

	assert.Equal(t, []types.Interval{iv(0, 3), iv(5, 6), iv(10, 12)}, occ.Coalesced)
	assert.Equal(t, []types.Interval{iv(3, 5), iv(6, 10)}, occ.Gaps)
	assert.Equal(t, 6.0, occ.Busy)
	assert.Equal(t, 6.0, occ.Idle)
	assert.Equal(t, 12.0, occ.Span)
	assert.InDelta(t, 0.5, occ.Utilization(), 1e-12)

	require.NotNil(t, occ.GapStats)
	assert.Equal(t, 2, occ.GapStats.Count)
	assert.Equal(t, 4.0, occ.GapStats.Max)
	assert.InDelta(t, 1.0, occ.GapStats.Std, 1e-12)
}

func TestOccupySingleSpan(t *testing.T) {
	occ, err := Occupy([]types.Interval{iv(0, 2), iv(1, 4)}, Inclusive)
	require.NoError(t, err)

	assert.Equal(t, 4.0, occ.Busy)
	assert.Equal(t, 0.0, occ.Idle)
	assert.Empty(t, occ.Gaps)
	assert.Nil(t, occ.GapStats)
}

func TestOccupyEmpty(t *testing.T) {
	_, err := Occupy(nil, Inclusive)
	assert.True(t, errors.Is(err, types.ErrInsufficientData))
}

func TestOccupyExclusiveTouching(t *testing.T) {
	occ, err := Occupy([]types.Interval{iv(0, 1), iv(1, 2)}, Exclusive)
	require.NoError(t, err)

	assert.Len(t, occ.Coalesced, 2)
	assert.Empty(t, occ.Gaps)
	assert.Nil(t, occ.GapStats)
	assert.Equal(t, occ.Span, occ.Busy+occ.Idle)
}

// intervalsFrom zips generated starts and lengths into valid intervals
func intervalsFrom(starts, lengths []float64) []types.Interval {
	n := min(len(starts), len(lengths))
	xs := make([]types.Interval, n)
	for i := 0; i < n; i++ {
		xs[i] = types.Interval{Start: starts[i], End: starts[i] + lengths[i]}
	}
	return xs
}

// sweepMeasure computes the length of the union of xs by walking sorted
// endpoints and counting how many intervals are open.
func sweepMeasure(xs []types.Interval) float64 {
	type event struct {
		at    float64
		delta int
	}
	events := make([]event, 0, 2*len(xs))
	for _, x := range xs {
		events = append(events, event{x.Start, 1}, event{x.End, -1})
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		return events[i].delta > events[j].delta
	})

	var total, prev float64
	open := 0
	for _, e := range events {
		if open > 0 {
			total += e.at - prev
		}
		open += e.delta
		prev = e.at
	}
	return total
}

func TestSweepMeasure(t *testing.T) {
	xs := []types.Interval{iv(10, 12), iv(0, 2), iv(1, 3), iv(5, 6), iv(3, 3), iv(11, 11.5)}
	assert.InDelta(t, 6.0, sweepMeasure(xs), 1e-12)

	for _, policy := range []Policy{Inclusive, Exclusive} {
		assert.InDelta(t, sweepMeasure(xs), TotalLength(Coalesce(xs, policy)), 1e-12)
	}
	assert.Zero(t, sweepMeasure(nil))
}

func TestIntervalProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	starts := gen.SliceOfN(12, gen.Float64Range(0, 100))
	lengths := gen.SliceOfN(12, gen.Float64Range(0, 15))

	for _, policy := range []Policy{Inclusive, Exclusive} {
		properties.Property("coalesced spans are sorted and disjoint/"+policy.String(), prop.ForAll(
			func(s, l []float64) bool {
				out := Coalesce(intervalsFrom(s, l), policy)
				for i := 1; i < len(out); i++ {
					if policy == Inclusive && out[i].Start <= out[i-1].End {
						return false
					}
					if policy == Exclusive && out[i].Start < out[i-1].End {
						return false
					}
				}
				return true
			},
			starts, lengths,
		))

		properties.Property("coalesced measure covers every input/"+policy.String(), prop.ForAll(
			func(s, l []float64) bool {
				in := intervalsFrom(s, l)
				out := Coalesce(in, policy)
				total := TotalLength(out)
				for _, x := range in {
					if x.Duration() > total+1e-9 {
						return false
					}
				}
				return total <= TotalLength(in)+1e-9
			},
			starts, lengths,
		))

		properties.Property("coalesced measure equals the sweep measure/"+policy.String(), prop.ForAll(
			func(s, l []float64) bool {
				in := intervalsFrom(s, l)
				return math.Abs(TotalLength(Coalesce(in, policy))-sweepMeasure(in)) <= 1e-9
			},
			starts, lengths,
		))

		properties.Property("coalesced plus gaps tile the span/"+policy.String(), prop.ForAll(
			func(s, l []float64) bool {
				in := intervalsFrom(s, l)
				if len(in) == 0 {
					return true
				}
				occ, err := Occupy(in, policy)
				if err != nil {
					return false
				}
				if math.Abs(occ.Busy+occ.Idle-occ.Span) > 1e-9 {
					return false
				}
				// every gap sits strictly between two consecutive spans
				for _, g := range occ.Gaps {
					if g.Start >= g.End {
						return false
					}
					for _, c := range occ.Coalesced {
						if g.Start < c.End && c.Start < g.End {
							return false
						}
					}
				}
				return true
			},
			starts, lengths,
		))
	}

	properties.TestingRun(t)
}
