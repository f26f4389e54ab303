/*
Package run orchestrates analysis of run directories.

A run directory holds one interval log and optionally one timing log per
worker process:

	server_log_rank_0.csv    server_timings_0.csv
	server_log_rank_1.csv    server_timings_1.csv
	client_log_rank_0.csv

AnalyzeRun discovers and parses those logs concurrently, rebases every
interval table onto the run-wide origin, derives per-key durations and
busy/idle occupancy, and summarizes native and derived tables across
processes. Sweep repeats that per configuration and reduces each run to one
comparison row through a category.Categorization.

Runs without logs, or with only one kind of log, are flagged in the report
instead of failing.
*/
package run
