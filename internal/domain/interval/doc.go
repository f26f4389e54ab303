// Package interval implements the algebra over closed [start, end] spans:
// overlap, stable sorting, coalescing, gap extraction and duration
// statistics.
//
// The boundary Policy used by Coalesce also defines what counts as a gap:
// under Inclusive, touching spans merge and never leave a zero-length gap;
// under Exclusive they stay separate and Gaps skips the zero-length space
// between them. Either way coalesced spans plus gaps tile
// [first start, last end].
package interval
