package interval

import (
	"github.com/cockroachdb/errors"

	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// Occupy computes the busy/idle view of xs regardless of key
func Occupy(xs []types.Interval, policy Policy) (*types.Occupancy, error) {
	if len(xs) == 0 {
		return nil, errors.Wrap(types.ErrInsufficientData, "occupancy needs 1 interval")
	}

	coalesced := Coalesce(xs, policy)
	occ := &types.Occupancy{
		Coalesced: coalesced,
		Gaps:      []types.Interval{},
		Busy:      TotalLength(coalesced),
		Span:      coalesced[len(coalesced)-1].End - coalesced[0].Start,
	}

	if len(coalesced) < 2 {
		return occ, nil
	}

	gaps, err := Gaps(coalesced)
	if err != nil {
		return nil, err
	}
	occ.Gaps = gaps
	occ.Idle = TotalLength(gaps)

	if len(gaps) > 0 {
		gs, err := DurationStats(gaps)
		if err != nil {
			return nil, err
		}
		occ.GapStats = &gs
	}
	return occ, nil
}

// OccupyTable merges all keys of table and computes its occupancy
func OccupyTable(table *types.IntervalTable, policy Policy) (*types.Occupancy, error) {
	return Occupy(MergeAllKeys(table), policy)
}
