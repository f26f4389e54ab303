package types

import "sort"

// Interval is a closed [Start, End] time span in seconds
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start
func (i Interval) Duration() float64 {
	return i.End - i.Start
}

// Shift returns the interval moved by -origin
func (i Interval) Shift(origin float64) Interval {
	return Interval{Start: i.Start - origin, End: i.End - origin}
}

// IntervalTable maps event keys to interval sequences of one process.
// Keys keep first-appearance order; intervals keep log order.
type IntervalTable struct {
	keys      []string
	intervals map[string][]Interval

	// Totals holds the "<key>_total, <seconds>" lines written next to interval lines.
	Totals ScalarTable
}

// NewIntervalTable creates an empty table
func NewIntervalTable() *IntervalTable {
	return &IntervalTable{
		intervals: make(map[string][]Interval),
		Totals:    make(ScalarTable),
	}
}

// Append adds intervals to key, registering the key if it is new.
// Appending zero intervals registers an empty sequence.
func (t *IntervalTable) Append(key string, xs ...Interval) {
	seq, ok := t.intervals[key]
	if !ok {
		t.keys = append(t.keys, key)
		seq = make([]Interval, 0, len(xs))
	}
	t.intervals[key] = append(seq, xs...)
}

// Get returns the intervals recorded for key
func (t *IntervalTable) Get(key string) []Interval {
	return t.intervals[key]
}

// Has reports whether key is present, even with an empty sequence
func (t *IntervalTable) Has(key string) bool {
	_, ok := t.intervals[key]
	return ok
}

// Keys returns keys in first-appearance order
func (t *IntervalTable) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of keys
func (t *IntervalTable) Len() int {
	return len(t.keys)
}

// Count returns the number of intervals across all keys
func (t *IntervalTable) Count() int {
	n := 0
	for _, xs := range t.intervals {
		n += len(xs)
	}
	return n
}

// Each calls fn for every key in order
func (t *IntervalTable) Each(fn func(key string, xs []Interval)) {
	for _, k := range t.keys {
		fn(k, t.intervals[k])
	}
}

// Clone returns a deep copy
func (t *IntervalTable) Clone() *IntervalTable {
	out := NewIntervalTable()
	t.Each(func(key string, xs []Interval) {
		out.Append(key, xs...)
	})
	for k, v := range t.Totals {
		out.Totals[k] = v
	}
	return out
}

// ScalarTable maps metric keys to a single value in seconds
type ScalarTable map[string]float64

// Keys returns the table keys sorted
func (s ScalarTable) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
