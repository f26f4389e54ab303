package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/tracestat/internal/infrastructure/tracing"
)

// CORSConfig defines which browser origins may read run reports.
type CORSConfig struct {
	Origins []string
	MaxAge  time.Duration
}

// DefaultCORSConfig allows any origin; reports carry no credentials.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{Origins: []string{"*"}, MaxAge: 12 * time.Hour}
}

// CORS creates a CORS middleware for the report API. Only the methods the
// API routes use are allowed, and dashboards may send and read the trace
// propagation headers so a request can be correlated with server logs.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	origins := cfg.Origins
	if len(origins) == 0 {
		origins = DefaultCORSConfig().Origins
	}
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Content-Type", "Accept", "Origin", tracing.HeaderTraceID, tracing.HeaderSpanID},
		ExposeHeaders: []string{tracing.HeaderTraceID, tracing.HeaderSpanID},
		MaxAge:        cfg.MaxAge,
	})
}
