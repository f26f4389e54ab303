/*
Package tracing provides lightweight request tracing for the report API.

Spans carry ULID trace and span ids and are written to the structured log
when they finish; nothing is exported to a collector.

# Usage

	tracer := tracing.New("tracestat", logger)
	router.Use(tracing.HTTPMiddleware(tracer))

	// Anywhere below the middleware
	span, ctx := tracing.StartSpan(ctx, "analyze_run")
	defer span.Finish()

Calling the package-level StartSpan with a context that holds no tracer
returns an inert span, so domain code can trace unconditionally.

# Propagation

X-Trace-ID and X-Span-ID request headers continue an upstream trace; the
same headers are set on every response.
*/
package tracing
