/*
Tracestat analyzes per-process interval and timing logs of parallel runs.

Usage:

	tracestat analyze RUN_DIR [--format text|markdown|csv|json] [--label L]
	tracestat compare --categories FILE RUN_DIR... [--continue-on-error]
	tracestat compare --categories FILE --root SWEEP_DIR
	tracestat gaps INTERVAL_LOG
	tracestat serve [--port 8000] [--data-root DIR]

Global flags override the matching environment variables (BOUNDARY_POLICY,
EMPTY_KEYS, ANALYSIS_WORKERS, METRICS_FILE, LOG_LEVEL, LOG_DEV). Reports go
to stdout; logs go to stderr.
*/
package main
