// Package logging provides structured logging using uber/zap.
//
// Two modes are offered:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Both write to stderr by default so report output on stdout stays
// machine-readable.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	runLog := logger.ForRun("ost-8", "/scratch/runs/ost-8")
//	runLog.Info("discovered logs", zap.Int("interval_logs", 16))
package logging
