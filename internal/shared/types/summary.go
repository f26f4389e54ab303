package types

import "sort"

// SummaryStat aggregates one key over the sources that contain it
type SummaryStat struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}

// SummaryTable maps keys to their cross-source statistics
type SummaryTable map[string]SummaryStat

// Keys returns the table keys sorted
func (s SummaryTable) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DurationStats describes a set of interval durations
type DurationStats struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Occupancy is the busy/idle view of a merged interval set
type Occupancy struct {
	Coalesced []Interval     `json:"coalesced"`
	Gaps      []Interval     `json:"gaps"`
	Busy      float64        `json:"busy"`
	Idle      float64        `json:"idle"`
	Span      float64        `json:"span"`
	GapStats  *DurationStats `json:"gap_stats,omitempty"`
}

// Utilization returns Busy / Span, or 0 for a zero-length span
func (o *Occupancy) Utilization() float64 {
	if o == nil || o.Span <= 0 {
		return 0
	}
	return o.Busy / o.Span
}
