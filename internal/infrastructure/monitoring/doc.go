/*
Package monitoring provides Prometheus metrics for trace analysis.

# Overview

Every Metrics value owns a private registry, so tests and concurrent
servers never collide on global collector names.

# Features

- Ingestion metrics (files parsed, parse errors, parse latency, intervals read)
- Analysis metrics (runs analyzed by outcome, run latency, process count)
- HTTP request metrics for the report API
- Uptime gauge

# Usage

	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Time a parse
	timer := monitoring.NewTimer(metrics, "interval")
	table, err := p.ParseIntervalLog(path)
	timer.Stop(table.Count(), err)

	// One-shot CLI runs dump to the node exporter textfile collector
	metrics.WriteTextfile("/var/lib/node_exporter/tracestat.prom")
*/
package monitoring
