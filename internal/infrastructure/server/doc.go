/*
Package server assembles the report API: configuration, the run
aggregator, gin middleware and routes.

	srv, err := server.NewServer(cfg, logger, metrics)
	if err != nil {
		return err
	}
	return srv.Run(ctx)

Run blocks until ctx is cancelled and then shuts down within
ShutdownTimeout. When METRICS_FILE is set, a final Prometheus text
snapshot is written on shutdown.
*/
package server
