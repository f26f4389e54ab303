// Package types holds the values shared by the parser, the analysis
// packages and the renderers.
//
// Core Types:
//   - Interval, IntervalTable: per-key busy spans read from an interval log
//   - ScalarTable: one number per key, from a timing log or derived from intervals
//   - SummaryStat, SummaryTable: per-key statistics across processes
//   - DurationStats, Occupancy: busy/idle view of a set of intervals
//   - ProcessReport, RunReport: analysis of one process and one run directory
//   - Comparison, ComparisonRow: categorized quantities across runs
//
// Errors:
//   - ParseError: malformed line, matches ErrParse
//   - MissingFileError: expected file or directory is absent
//   - ErrEmptyReferenceSet, ErrInsufficientData
package types
