// Package parser reads the per-process logs written by the runtime.
//
// Interval logs hold one key per line followed by START-END pairs:
//
//	obtain_lock,1712345678.100000-1712345678.250000,1712345679.000000-1712345679.010000
//	obtain_lock_total, 0.160000
//
// Timing logs hold KEY,VALUE pairs. Both kinds may start with a ctime(3)
// session header and may be gzip or zstd compressed.
//
// Malformed lines abort the file with a *types.ParseError; no partial
// table is returned.
package parser
